package models

// EventType is the closed set of life events recorded on a person.
type EventType string

const (
	EventBirth        EventType = "birth"
	EventDeath        EventType = "death"
	EventBaptism      EventType = "baptism"
	EventFuneral      EventType = "funeral"
	EventEmigration   EventType = "emigration"
	EventImmigration  EventType = "immigration"
	EventResidence    EventType = "residence"
	EventGraduation   EventType = "graduation"
	EventConfirmation EventType = "confirmation"
	EventCremation    EventType = "cremation"
)

var eventTypeLabels = map[EventType]string{
	EventBirth:        "Birth",
	EventDeath:        "Death",
	EventBaptism:      "Baptism",
	EventFuneral:      "Funeral",
	EventEmigration:   "Emigration",
	EventImmigration:  "Immigration",
	EventResidence:    "Residence",
	EventGraduation:   "Graduation",
	EventConfirmation: "Confirmation",
	EventCremation:    "Cremation",
}

// EventTypes lists every person event type in display order.
var EventTypes = []EventType{
	EventBirth, EventBaptism, EventConfirmation, EventGraduation, EventResidence,
	EventEmigration, EventImmigration, EventDeath, EventFuneral, EventCremation,
}

func (t EventType) Valid() bool {
	_, ok := eventTypeLabels[t]
	return ok
}

// Label is the human readable name of the event type.
func (t EventType) Label() string {
	return eventTypeLabels[t]
}

// OneTime reports whether a person may have at most one event of this type.
func (t EventType) OneTime() bool {
	return t == EventBirth || t == EventDeath
}

// ParseEventType converts a stored or user supplied value.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", ErrInvalidEventType.Detail("%q", s)
	}
	return t, nil
}

// FamilyEventType is the closed set of events recorded on a family.
type FamilyEventType string

const (
	FamilyEventMarriage   FamilyEventType = "marriage"
	FamilyEventDivorce    FamilyEventType = "divorce"
	FamilyEventBanns      FamilyEventType = "banns"
	FamilyEventEngagement FamilyEventType = "engagement"
)

var familyEventTypeLabels = map[FamilyEventType]string{
	FamilyEventMarriage:   "Marriage",
	FamilyEventDivorce:    "Divorce",
	FamilyEventBanns:      "Banns",
	FamilyEventEngagement: "Engagement",
}

// FamilyEventTypes lists every family event type in display order.
var FamilyEventTypes = []FamilyEventType{
	FamilyEventEngagement, FamilyEventBanns, FamilyEventMarriage, FamilyEventDivorce,
}

func (t FamilyEventType) Valid() bool {
	_, ok := familyEventTypeLabels[t]
	return ok
}

func (t FamilyEventType) Label() string {
	return familyEventTypeLabels[t]
}

func ParseFamilyEventType(s string) (FamilyEventType, error) {
	t := FamilyEventType(s)
	if !t.Valid() {
		return "", ErrInvalidEventType.Detail("%q", s)
	}
	return t, nil
}
