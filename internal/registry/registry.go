// Package registry maps network identifiers to live entities.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/luciancaetano/netsync"
)

// Registry errors.
var (
	ErrUnknownEntity   = errors.New(netsync.ErrUnknownEntity)
	ErrDuplicateEntity = errors.New(netsync.ErrDuplicateEntity)
)

// Entity kinds. Player ids and network ids are separate id spaces.
const (
	KindPlayer = "player"
	KindObject = "object"
)

// UnknownEntityError reports an update for an id that was never spawned.
type UnknownEntityError struct {
	Kind string
	ID   int32
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("%s: %s %d", netsync.ErrUnknownEntity, e.Kind, e.ID)
}

func (e *UnknownEntityError) Is(target error) bool {
	return target == ErrUnknownEntity
}

// Registry holds the players and tracked objects of one session.
//
// It is written by a single goroutine (the session tick). Readers from
// other goroutines get copies and never observe an entry mid-mutation.
type Registry struct {
	mu       sync.RWMutex
	renderer netsync.Renderer
	players  map[int32]*netsync.Player
	objects  map[int32]*netsync.TrackedObject
}

// New creates an empty registry. A nil renderer is replaced by one that
// does nothing.
func New(renderer netsync.Renderer) *Registry {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Registry{
		renderer: renderer,
		players:  make(map[int32]*netsync.Player),
		objects:  make(map[int32]*netsync.TrackedObject),
	}
}

// CreatePlayer spawns the player object through the renderer and records it.
func (reg *Registry) CreatePlayer(id int32, username string, position netsync.Vector3, rotation netsync.Quaternion, isLocal bool) (netsync.Player, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.players[id]; ok {
		return netsync.Player{}, fmt.Errorf("%w: %s %d", ErrDuplicateEntity, KindPlayer, id)
	}

	h, err := reg.renderer.SpawnPlayer(id, username, isLocal, position, rotation)
	if err != nil {
		return netsync.Player{}, fmt.Errorf("spawn player %d: %w", id, err)
	}

	p := &netsync.Player{
		ID:       id,
		Username: username,
		IsLocal:  isLocal,
		Position: position,
		Rotation: rotation,
		Handle:   h,
	}
	reg.players[id] = p
	return *p, nil
}

// Player returns a copy of the player entry.
func (reg *Registry) Player(id int32) (netsync.Player, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	p, ok := reg.players[id]
	if !ok {
		return netsync.Player{}, &UnknownEntityError{Kind: KindPlayer, ID: id}
	}
	return *p, nil
}

// Players returns copies of every player, ordered by id.
func (reg *Registry) Players() []netsync.Player {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]netsync.Player, 0, len(reg.players))
	for _, p := range reg.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RemovePlayer destroys the player object and forgets the entry.
func (reg *Registry) RemovePlayer(id int32) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	p, ok := reg.players[id]
	if !ok {
		return &UnknownEntityError{Kind: KindPlayer, ID: id}
	}
	reg.renderer.Destroy(p.Handle)
	delete(reg.players, id)
	return nil
}

// SpawnPrefab instantiates a prefab through the renderer and tracks it
// under networkID.
func (reg *Registry) SpawnPrefab(prefabID, networkID int32, position netsync.Vector3, rotation netsync.Quaternion, scale netsync.Vector3) (netsync.TrackedObject, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.objects[networkID]; ok {
		return netsync.TrackedObject{}, fmt.Errorf("%w: %s %d", ErrDuplicateEntity, KindObject, networkID)
	}

	h, err := reg.renderer.Instantiate(prefabID, position, rotation, scale)
	if err != nil {
		return netsync.TrackedObject{}, fmt.Errorf("instantiate prefab %d: %w", prefabID, err)
	}

	return reg.track(netsync.TrackedObject{
		NetworkID: networkID,
		PrefabID:  prefabID,
		Position:  position,
		Rotation:  rotation,
		Scale:     scale,
		Handle:    h,
	}), nil
}

// CreateTrackedObject registers an object the caller already instantiated.
func (reg *Registry) CreateTrackedObject(obj netsync.TrackedObject) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.objects[obj.NetworkID]; ok {
		return fmt.Errorf("%w: %s %d", ErrDuplicateEntity, KindObject, obj.NetworkID)
	}
	reg.track(obj)
	return nil
}

func (reg *Registry) track(obj netsync.TrackedObject) netsync.TrackedObject {
	stored := obj
	reg.objects[obj.NetworkID] = &stored
	return stored
}

// TrackedObject returns a copy of the tracked object entry.
func (reg *Registry) TrackedObject(networkID int32) (netsync.TrackedObject, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	o, ok := reg.objects[networkID]
	if !ok {
		return netsync.TrackedObject{}, &UnknownEntityError{Kind: KindObject, ID: networkID}
	}
	return *o, nil
}

// TrackedObjects returns copies of every tracked object, ordered by network id.
func (reg *Registry) TrackedObjects() []netsync.TrackedObject {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]netsync.TrackedObject, 0, len(reg.objects))
	for _, o := range reg.objects {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NetworkID < out[j].NetworkID })
	return out
}

// RemoveTrackedObject destroys the object and forgets the entry.
func (reg *Registry) RemoveTrackedObject(networkID int32) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	o, ok := reg.objects[networkID]
	if !ok {
		return &UnknownEntityError{Kind: KindObject, ID: networkID}
	}
	reg.renderer.Destroy(o.Handle)
	delete(reg.objects, networkID)
	return nil
}

// Counts returns the number of players and tracked objects.
func (reg *Registry) Counts() (players, objects int) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.players), len(reg.objects)
}

// Clear destroys every entity. Called when the session ends.
func (reg *Registry) Clear() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for id, p := range reg.players {
		reg.renderer.Destroy(p.Handle)
		delete(reg.players, id)
	}
	for id, o := range reg.objects {
		reg.renderer.Destroy(o.Handle)
		delete(reg.objects, id)
	}
}

// NopRenderer is a headless renderer: every object gets handle 0.
type NopRenderer struct{}

func (NopRenderer) SpawnPlayer(int32, string, bool, netsync.Vector3, netsync.Quaternion) (netsync.Handle, error) {
	return 0, nil
}

func (NopRenderer) Instantiate(int32, netsync.Vector3, netsync.Quaternion, netsync.Vector3) (netsync.Handle, error) {
	return 0, nil
}

func (NopRenderer) ApplyPose(netsync.Handle, netsync.Vector3, netsync.Quaternion, netsync.Vector3) {}

func (NopRenderer) Destroy(netsync.Handle) {}
