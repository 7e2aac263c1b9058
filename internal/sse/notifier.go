package sse

import (
	"context"

	"github.com/GTDGit/bizdir_api/internal/location"
)

// HubNotifier publishes session selections to the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// PublishSelection implements location.SelectionPublisher.
func (n *HubNotifier) PublishSelection(_ context.Context, ev location.SelectionEvent) error {
	if n.hub.ClientCount() == 0 {
		return nil
	}
	n.hub.Broadcast(selectionToMessage(ev))
	return nil
}

func selectionToMessage(ev location.SelectionEvent) *SelectionMessage {
	return &SelectionMessage{
		Event:     EventLocationSelected,
		SessionID: ev.SessionID,
		Type:      string(ev.Selection.Type),
		ID:        ev.Selection.ID,
		Slug:      ev.Selection.Slug,
		Name:      ev.Selection.Name,
		RegionID:  ev.Selection.RegionID,
		Source:    string(ev.Source),
		Locked:    ev.Locked,
		Timestamp: ev.At,
	}
}
