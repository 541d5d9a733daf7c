package usecase

import (
	"strings"

	"sitechat/internal/domain/entity"
	"sitechat/pkg/errors"
)

var groupTypes = map[entity.MessageType]bool{
	entity.MessageTypeGeneral:      true,
	entity.MessageTypeTask:         true,
	entity.MessageTypeAlert:        true,
	entity.MessageTypeAnnouncement: true,
}

var directTypes = map[entity.MessageType]bool{
	entity.MessageTypeText:  true,
	entity.MessageTypeImage: true,
	entity.MessageTypeVideo: true,
	entity.MessageTypeFile:  true,
}

var priorities = map[entity.Priority]bool{
	entity.PriorityLow:    true,
	entity.PriorityMedium: true,
	entity.PriorityHigh:   true,
	entity.PriorityUrgent: true,
}

// NormalizeGroupType defaults an empty type to general and rejects unknown ones.
func NormalizeGroupType(t entity.MessageType) (entity.MessageType, error) {
	t = entity.MessageType(strings.ToLower(strings.TrimSpace(string(t))))
	if t == "" {
		return entity.MessageTypeGeneral, nil
	}
	if !groupTypes[t] {
		return "", errors.BadRequest("Invalid group message type: "+string(t), nil)
	}
	return t, nil
}

// NormalizeDirectType infers the media kind from the first attachment when no type is given.
func NormalizeDirectType(t entity.MessageType, media []entity.LocalMedia) (entity.MessageType, error) {
	t = entity.MessageType(strings.ToLower(strings.TrimSpace(string(t))))
	if t == "" {
		if len(media) > 0 && directTypes[media[0].Kind] {
			return media[0].Kind, nil
		}
		return entity.MessageTypeText, nil
	}
	if !directTypes[t] {
		return "", errors.BadRequest("Invalid direct message type: "+string(t), nil)
	}
	return t, nil
}

// NormalizePriority defaults an empty priority to medium and rejects unknown ones.
func NormalizePriority(p entity.Priority) (entity.Priority, error) {
	p = entity.Priority(strings.ToLower(strings.TrimSpace(string(p))))
	if p == "" {
		return entity.PriorityMedium, nil
	}
	if !priorities[p] {
		return "", errors.BadRequest("Invalid priority: "+string(p), nil)
	}
	return p, nil
}
