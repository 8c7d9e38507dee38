package session

import (
	"context"
	"errors"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/modules/explorer/interaction"
	"github.com/trujjo/neurotome/internal/modules/explorer/viewport"
	"gonum.org/v1/gonum/spatial/r2"
)

// DragPhase is one step of a pointer drag.
type DragPhase string

const (
	DragStart DragPhase = "start"
	DragMove  DragPhase = "move"
	DragEnd   DragPhase = "end"
)

// Drag moves node id to world coordinates (x, y). The end phase applies the
// release policy and persists the workspace pins.
func (s *Session) Drag(ctx context.Context, id domain.StableID, phase DragPhase, x, y float64) (domain.Position, error) {
	s.touch()
	var err error
	switch phase {
	case DragStart:
		err = s.interact.DragStart(id, x, y)
	case DragMove, "":
		err = s.interact.Drag(id, x, y)
	case DragEnd:
		_, err = s.interact.DragEnd(id, x, y)
		if err == nil {
			s.persistPins(ctx)
		}
	default:
		return domain.Position{}, &PhaseError{Phase: string(phase)}
	}
	if err != nil {
		return domain.Position{}, err
	}
	return s.engine.Positions()[id], nil
}

type PhaseError struct{ Phase string }

func (e *PhaseError) Error() string { return "unknown drag phase " + e.Phase }

// ScreenToWorld converts pointer coordinates through the current viewport.
func (s *Session) ScreenToWorld(x, y float64) (float64, float64) {
	p := s.view.ScreenToWorld(x, y)
	return p.X, p.Y
}

// Unpin releases node id. A persisted pin of a node that is filtered out of
// the current model is still removed.
func (s *Session) Unpin(ctx context.Context, id domain.StableID) error {
	s.touch()
	s.mu.Lock()
	saved, had := s.persisted[id]
	delete(s.persisted, id)
	s.mu.Unlock()

	if err := s.interact.Unpin(id); err != nil {
		if !had || !errors.Is(err, domain.ErrUnknownNode) {
			if had {
				s.mu.Lock()
				s.persisted[id] = saved
				s.mu.Unlock()
			}
			return err
		}
	}
	s.persistPins(ctx)
	return nil
}

// persistPins writes every pin of the workspace: the pins of the visible
// model plus persisted pins of nodes currently filtered out.
func (s *Session) persistPins(ctx context.Context) {
	if s.deps.Positions == nil {
		return
	}
	visible := s.engine.Positions()
	s.mu.Lock()
	for id, p := range visible {
		if p.Pinned {
			s.persisted[id] = p
		} else {
			delete(s.persisted, id)
		}
	}
	pins := make(map[domain.StableID]domain.Position, len(s.persisted))
	for id, p := range s.persisted {
		pins[id] = p
	}
	s.mu.Unlock()
	if err := s.deps.Positions.Save(ctx, s.Workspace, pins); err != nil {
		s.log.Warn("saving pinned positions failed", "workspace", s.Workspace, "error", err)
	}
}

func (s *Session) Select(id domain.StableID) (interaction.Detail, error) {
	s.touch()
	return s.interact.Select(id)
}

func (s *Session) Deselect() {
	s.touch()
	s.interact.Deselect()
}

func (s *Session) Detail() *interaction.Detail {
	s.detailMu.Lock()
	defer s.detailMu.Unlock()
	if s.detail == nil {
		return nil
	}
	d := *s.detail
	return &d
}

// detailSink stores the selection and forwards it to subscribers.
type detailSink struct{ s *Session }

func (d detailSink) Show(det interaction.Detail) {
	d.s.detailMu.Lock()
	d.s.detail = &det
	d.s.detailMu.Unlock()
	if d.s.deps.Publisher != nil {
		d.s.deps.Publisher.PublishDetail(d.s.ID, &det)
	}
}

func (d detailSink) Clear() {
	d.s.detailMu.Lock()
	d.s.detail = nil
	d.s.detailMu.Unlock()
	if d.s.deps.Publisher != nil {
		d.s.deps.Publisher.PublishDetail(d.s.ID, nil)
	}
}

// Viewport operations. Resizing also moves the layout's logical bounds.

func (s *Session) Viewport() viewport.State { return s.view.State() }

func (s *Session) SetViewport(width, height float64, t *viewport.Transform) viewport.State {
	s.touch()
	if width > 0 && height > 0 {
		s.view.Resize(width, height)
		s.engine.SetBounds(r2.Box{Max: r2.Vec{X: width, Y: height}})
	}
	if t != nil {
		s.view.Set(*t)
	}
	return s.view.State()
}

func (s *Session) FitAll() viewport.Transform {
	s.touch()
	return s.view.FitModel(s.engine.Snapshot())
}

func (s *Session) ZoomToNode(id domain.StableID, scale float64) (viewport.Transform, error) {
	s.touch()
	p, ok := s.engine.Positions()[id]
	if !ok {
		return viewport.Transform{}, domain.ErrUnknownNode
	}
	return s.view.ZoomTo(r2.Vec{X: p.X, Y: p.Y}, scale), nil
}

func (s *Session) Pan(dx, dy float64) viewport.Transform {
	s.touch()
	return s.view.Pan(dx, dy)
}

func (s *Session) ZoomAt(factor, x, y float64) viewport.Transform {
	s.touch()
	return s.view.ZoomAt(factor, x, y)
}
