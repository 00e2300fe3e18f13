package ws

// Closed set of event types fanned out to quest viewers. Events are
// notifications to trigger a refetch, not a source of truth: a viewer
// that is offline when one fires resyncs by refetching on reconnect.

type EventType string

const (
	EventQuestStatusUpdated  EventType = "QUEST_STATUS_UPDATED"
	EventSpeciesFound        EventType = "SPECIES_FOUND"
	EventSpeciesUnfound      EventType = "SPECIES_UNFOUND"
	EventQuestEditingStarted EventType = "QUEST_EDITING_STARTED"
)

type Event struct {
	Type    EventType `json:"type"`
	Payload Payload   `json:"payload"`
}

// Payload is a closed union; each event type carries a fixed schema.
type Payload interface{ isEventPayload() }

type StatusUpdatedPayload struct {
	Status string `json:"status"`
}

type SpeciesPayload struct {
	MappingID uint   `json:"mapping_id"`
	GuestName string `json:"guest_name"`
}

type EditingStartedPayload struct {
	Message string `json:"message"`
}

func (StatusUpdatedPayload) isEventPayload()  {}
func (SpeciesPayload) isEventPayload()        {}
func (EditingStartedPayload) isEventPayload() {}

func QuestStatusUpdated(status string) Event {
	return Event{Type: EventQuestStatusUpdated, Payload: StatusUpdatedPayload{Status: status}}
}

func SpeciesFound(mappingID uint, guestName string) Event {
	return Event{Type: EventSpeciesFound, Payload: SpeciesPayload{MappingID: mappingID, GuestName: guestName}}
}

func SpeciesUnfound(mappingID uint, guestName string) Event {
	return Event{Type: EventSpeciesUnfound, Payload: SpeciesPayload{MappingID: mappingID, GuestName: guestName}}
}

func QuestEditingStarted(message string) Event {
	return Event{Type: EventQuestEditingStarted, Payload: EditingStartedPayload{Message: message}}
}
