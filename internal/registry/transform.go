package registry

import "github.com/luciancaetano/netsync"

// SetPlayerPosition moves an existing player. Updates for unknown ids are
// rejected, never turned into new entries.
func (reg *Registry) SetPlayerPosition(id int32, position netsync.Vector3) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	p, ok := reg.players[id]
	if !ok {
		return &UnknownEntityError{Kind: KindPlayer, ID: id}
	}
	p.Position = position
	reg.renderer.ApplyPose(p.Handle, p.Position, p.Rotation, netsync.One())
	return nil
}

// SetPlayerRotation turns an existing player.
func (reg *Registry) SetPlayerRotation(id int32, rotation netsync.Quaternion) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	p, ok := reg.players[id]
	if !ok {
		return &UnknownEntityError{Kind: KindPlayer, ID: id}
	}
	p.Rotation = rotation
	reg.renderer.ApplyPose(p.Handle, p.Position, p.Rotation, netsync.One())
	return nil
}

// ApplyTransform overwrites the pose of a tracked object and forwards it to
// the renderer. Each update is a full snapshot, so the last one applied
// wins regardless of arrival order.
//
// An unknown networkID returns *UnknownEntityError: only SpawnPrefab
// creates entries.
func (reg *Registry) ApplyTransform(networkID int32, position netsync.Vector3, rotation netsync.Quaternion, scale netsync.Vector3) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	o, ok := reg.objects[networkID]
	if !ok {
		return &UnknownEntityError{Kind: KindObject, ID: networkID}
	}
	o.Position = position
	o.Rotation = rotation
	o.Scale = scale
	reg.renderer.ApplyPose(o.Handle, position, rotation, scale)
	return nil
}
