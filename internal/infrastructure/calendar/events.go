package calendar

import (
	"context"
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

// eventService はストアが必要とするカレンダーAPIの操作だけを抜き出したものです
type eventService interface {
	Upcoming(ctx context.Context, from time.Time, limit int64) ([]*gcal.Event, error)
	FindByPrivate(ctx context.Context, key, value string) ([]*gcal.Event, error)
	Insert(ctx context.Context, ev *gcal.Event) (*gcal.Event, error)
	Update(ctx context.Context, id string, ev *gcal.Event) (*gcal.Event, error)
	Delete(ctx context.Context, id string) error
}

// googleEvents はGoogle Calendar API v3 を使う eventService の実装です
type googleEvents struct {
	srv        *gcal.Service
	calendarID string
}

func (g googleEvents) Upcoming(ctx context.Context, from time.Time, limit int64) ([]*gcal.Event, error) {
	res, err := g.srv.Events.List(g.calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(from.Format(time.RFC3339)).
		MaxResults(limit).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (g googleEvents) FindByPrivate(ctx context.Context, key, value string) ([]*gcal.Event, error) {
	res, err := g.srv.Events.List(g.calendarID).
		Context(ctx).
		ShowDeleted(false).
		PrivateExtendedProperty(key + "=" + value).
		MaxResults(1).
		Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (g googleEvents) Insert(ctx context.Context, ev *gcal.Event) (*gcal.Event, error) {
	return g.srv.Events.Insert(g.calendarID, ev).Context(ctx).Do()
}

func (g googleEvents) Update(ctx context.Context, id string, ev *gcal.Event) (*gcal.Event, error) {
	return g.srv.Events.Update(g.calendarID, id, ev).Context(ctx).Do()
}

func (g googleEvents) Delete(ctx context.Context, id string) error {
	return g.srv.Events.Delete(g.calendarID, id).Context(ctx).Do()
}
