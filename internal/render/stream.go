package render

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/events/bus"
	"github.com/zeusync/collapse/internal/core/observability/log"
	"github.com/zeusync/collapse/internal/core/simulation"
	"github.com/zeusync/collapse/internal/core/systems/physics"
)

var (
	_ simulation.Renderer     = (*Stream)(nil)
	_ simulation.FrameFlusher = (*Stream)(nil)
)

// Message types sent to viewers.
const (
	MessageScene = "scene"
	MessageFrame = "frame"
	MessageEvent = "event"
)

// Envelope wraps every message sent to viewers.
type Envelope struct {
	Type  string          `json:"type"`
	Seq   uint64          `json:"seq,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data"`
}

type SceneData struct {
	Scene     Scene                                  `json:"scene"`
	Templates map[collapse.Material]BuildingTemplate `json:"templates"`
}

type BuildingFrame struct {
	Handle   simulation.Handle `json:"handle"`
	Material collapse.Material `json:"material"`
	Offset   physics.Vec3      `json:"offset"`
	Rotation physics.Vec3      `json:"rotation"`
}

type DebrisFrame struct {
	Handle   simulation.Handle `json:"handle"`
	Position physics.Vec3      `json:"position"`
}

// Frame is the dynamic state of the view after one tick.
type Frame struct {
	Buildings []BuildingFrame `json:"buildings"`
	Debris    []DebrisFrame   `json:"debris"`
}

// Publisher delivers encoded messages to every connected viewer.
type Publisher interface {
	Broadcast(msg []byte)
}

// Stream is a Renderer that keeps a display list and publishes it to
// viewers once per tick. Renderer methods must be called from the tick
// goroutine; Scene, Latest and Stats are safe from any goroutine.
type Stream struct {
	publisher Publisher
	logger    log.Log

	buildings   []*BuildingFrame
	debris      []DebrisFrame
	debrisIndex map[simulation.Handle]int

	mu      sync.RWMutex
	scene   []byte
	latest  []byte
	digest  uint64
	seq     uint64
	skipped uint64
}

// NewStream creates a stream renderer. publisher may be nil, in which case
// frames are only kept for Latest.
func NewStream(publisher Publisher, logger log.Log) (*Stream, error) {
	data := SceneData{
		Scene:     DefaultScene(),
		Templates: make(map[collapse.Material]BuildingTemplate, len(collapse.Materials)),
	}
	for _, m := range collapse.Materials {
		t, err := TemplateFor(m)
		if err != nil {
			return nil, err
		}
		data.Templates[m] = t
	}

	scene, err := encode(MessageScene, 0, "", data)
	if err != nil {
		return nil, err
	}

	return &Stream{
		publisher:   publisher,
		logger:      logger.With(log.String("component", "stream")),
		debrisIndex: make(map[simulation.Handle]int),
		scene:       scene,
	}, nil
}

func (s *Stream) ShowBuilding(material collapse.Material) (simulation.Handle, error) {
	if _, err := TemplateFor(material); err != nil {
		return "", err
	}
	h := simulation.Handle(uuid.NewString())
	s.buildings = append(s.buildings, &BuildingFrame{Handle: h, Material: material})
	s.logger.Debug("Building shown", log.String("handle", string(h)), log.String("material", material.String()))
	return h, nil
}

func (s *Stream) RemoveBuilding(h simulation.Handle) {
	for i, b := range s.buildings {
		if b.Handle == h {
			s.buildings = append(s.buildings[:i], s.buildings[i+1:]...)
			s.logger.Debug("Building removed", log.String("handle", string(h)))
			return
		}
	}
}

func (s *Stream) ApplyPose(h simulation.Handle, positionOffset, rotationOffset physics.Vec3) {
	for _, b := range s.buildings {
		if b.Handle == h {
			b.Offset = positionOffset
			b.Rotation = rotationOffset
			return
		}
	}
}

func (s *Stream) SpawnDebrisMesh(position physics.Vec3) simulation.Handle {
	h := simulation.Handle(uuid.NewString())
	s.debrisIndex[h] = len(s.debris)
	s.debris = append(s.debris, DebrisFrame{Handle: h, Position: position})
	return h
}

func (s *Stream) UpdateDebrisMesh(h simulation.Handle, position physics.Vec3) {
	if i, ok := s.debrisIndex[h]; ok {
		s.debris[i].Position = position
	}
}

// Flush publishes the current display list unless it is identical to the
// previously published one.
func (s *Stream) Flush() {
	frame := Frame{
		Buildings: make([]BuildingFrame, len(s.buildings)),
		Debris:    s.debris,
	}
	if frame.Debris == nil {
		frame.Debris = []DebrisFrame{}
	}
	for i, b := range s.buildings {
		frame.Buildings[i] = *b
	}

	body, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("Failed to encode frame", log.Error(err))
		return
	}
	digest := xxhash.Sum64(body)

	s.mu.Lock()
	if s.latest != nil && digest == s.digest {
		s.skipped++
		s.mu.Unlock()
		return
	}
	s.seq++
	msg, err := json.Marshal(Envelope{Type: MessageFrame, Seq: s.seq, Data: body})
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("Failed to encode frame envelope", log.Error(err))
		return
	}
	s.digest = digest
	s.latest = msg
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.Broadcast(msg)
	}
}

// OnEvent forwards simulation events to viewers. It is a bus handler.
func (s *Stream) OnEvent(e bus.Event) error {
	msg, err := encode(MessageEvent, 0, e.Type(), e.Data())
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type(), err)
	}
	if s.publisher != nil {
		s.publisher.Broadcast(msg)
	}
	return nil
}

// Scene returns the encoded scene message.
func (s *Stream) Scene() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene
}

// Latest returns the most recently published frame message, or nil.
func (s *Stream) Latest() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Stats returns how many frames were published and how many were skipped
// as duplicates.
func (s *Stream) Stats() (published, skipped uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq, s.skipped
}

func encode(typ string, seq uint64, event string, data any) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: typ, Seq: seq, Event: event, Data: body})
}
