package views

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/inamate/viewport/internal/db"
	"github.com/inamate/viewport/internal/engine"
	"github.com/inamate/viewport/internal/typeid"
)

var (
	ErrNotFound     = errors.New("view not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidView  = errors.New("invalid view")
	ErrRoomNotFound = errors.New("room not found")
)

// Store is the subset of db.Queries the service needs.
type Store interface {
	CreateView(ctx context.Context, arg db.CreateViewParams) (db.View, error)
	GetView(ctx context.Context, id string) (db.View, error)
	ListViewsForUser(ctx context.Context, ownerID string) ([]db.View, error)
	DeleteView(ctx context.Context, id string) error
}

// Rooms gives access to live collaborative viewports.
type Rooms interface {
	ViewState(roomID string) (engine.State, bool)
	RestoreView(roomID string, zoomX, zoomY, offsetX, offsetY float64, stretch engine.StretchMode) error
}

type Service struct {
	store Store
	rooms Rooms
}

func NewService(store Store, rooms Rooms) *Service {
	return &Service{store: store, rooms: rooms}
}

// View is a saved zoom/offset bookmark.
type View struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	OwnerID   string             `json:"ownerId"`
	ZoomX     float64            `json:"zoomX"`
	ZoomY     float64            `json:"zoomY"`
	OffsetX   float64            `json:"offsetX"`
	OffsetY   float64            `json:"offsetY"`
	Stretch   engine.StretchMode `json:"stretch"`
	Transform []float64          `json:"transform"`
	CreatedAt string             `json:"createdAt"`
	UpdatedAt string             `json:"updatedAt"`
}

// CreateInput describes a new view. When RoomID is set the zoom, offset
// and stretch are captured from that live room instead.
type CreateInput struct {
	Name    string             `json:"name"`
	RoomID  string             `json:"roomId,omitempty"`
	ZoomX   float64            `json:"zoomX"`
	ZoomY   float64            `json:"zoomY"`
	OffsetX float64            `json:"offsetX"`
	OffsetY float64            `json:"offsetY"`
	Stretch engine.StretchMode `json:"stretch"`
}

func (in *CreateInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidView)
	}
	if !(in.ZoomX > 0) || !(in.ZoomY > 0) || math.IsInf(in.ZoomX, 0) || math.IsInf(in.ZoomY, 0) {
		return fmt.Errorf("%w: zoom must be positive and finite", ErrInvalidView)
	}
	if !finite(in.OffsetX) || !finite(in.OffsetY) {
		return fmt.Errorf("%w: offset must be finite", ErrInvalidView)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateInput, ownerID string) (*View, error) {
	if in.RoomID != "" {
		if s.rooms == nil {
			return nil, ErrRoomNotFound
		}
		st, ok := s.rooms.ViewState(in.RoomID)
		if !ok {
			return nil, ErrRoomNotFound
		}
		in.ZoomX, in.ZoomY = st.ZoomX, st.ZoomY
		in.OffsetX, in.OffsetY = st.OffsetX, st.OffsetY
		in.Stretch = st.Stretch
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	dbView, err := s.store.CreateView(ctx, db.CreateViewParams{
		ID:      typeid.NewViewID(),
		OwnerID: ownerID,
		Name:    in.Name,
		ZoomX:   in.ZoomX,
		ZoomY:   in.ZoomY,
		OffsetX: in.OffsetX,
		OffsetY: in.OffsetY,
		Stretch: in.Stretch.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("create view: %w", err)
	}
	return dbViewToView(dbView)
}

func (s *Service) Get(ctx context.Context, viewID, userID string) (*View, error) {
	dbView, err := s.owned(ctx, viewID, userID)
	if err != nil {
		return nil, err
	}
	return dbViewToView(dbView)
}

func (s *Service) List(ctx context.Context, userID string) ([]View, error) {
	dbViews, err := s.store.ListViewsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}

	views := make([]View, 0, len(dbViews))
	for _, v := range dbViews {
		view, err := dbViewToView(v)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *Service) Delete(ctx context.Context, viewID, userID string) error {
	if _, err := s.owned(ctx, viewID, userID); err != nil {
		return err
	}
	return s.store.DeleteView(ctx, viewID)
}

// Apply restores a saved view into a live room.
func (s *Service) Apply(ctx context.Context, viewID, roomID, userID string) (*View, error) {
	view, err := s.Get(ctx, viewID, userID)
	if err != nil {
		return nil, err
	}
	if s.rooms == nil {
		return nil, ErrRoomNotFound
	}
	if err := s.rooms.RestoreView(roomID, view.ZoomX, view.ZoomY, view.OffsetX, view.OffsetY, view.Stretch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRoomNotFound, err)
	}
	return view, nil
}

func (s *Service) owned(ctx context.Context, viewID, userID string) (db.View, error) {
	dbView, err := s.store.GetView(ctx, viewID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.View{}, ErrNotFound
		}
		return db.View{}, fmt.Errorf("get view: %w", err)
	}
	if dbView.OwnerID != userID {
		return db.View{}, ErrForbidden
	}
	return dbView, nil
}

func dbViewToView(v db.View) (*View, error) {
	stretch, err := engine.ParseStretchMode(v.Stretch)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", v.ID, err)
	}
	return &View{
		ID:        v.ID,
		Name:      v.Name,
		OwnerID:   v.OwnerID,
		ZoomX:     v.ZoomX,
		ZoomY:     v.ZoomY,
		OffsetX:   v.OffsetX,
		OffsetY:   v.OffsetY,
		Stretch:   stretch,
		Transform: engine.Axis(v.ZoomX, v.ZoomY, v.OffsetX, v.OffsetY).ToSlice(),
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
		UpdatedAt: v.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
