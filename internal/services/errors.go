package services

import (
	"errors"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/status"
)

func isNotFound(err error) bool {
	return errors.Is(err, status.ErrNotFound)
}
