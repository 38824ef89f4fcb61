package realtime

import (
	"context"
	"fmt"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	pubnub "github.com/pubnub/go"
)

type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UUID         string
}

type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(cfg PubNubConfig) *PubNubPublisher {
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PublishKey
	pnConfig.SubscribeKey = cfg.SubscribeKey
	pnConfig.SecretKey = cfg.SecretKey
	pnConfig.UUID = cfg.UUID

	return &PubNubPublisher{pn: pubnub.NewPubNub(pnConfig)}
}

func (p *PubNubPublisher) PublishCheckIn(_ context.Context, evt models.CheckInEvent) error {
	_, st, err := p.pn.Publish().
		Channel(Channel(evt.EventID)).
		Message(evt).
		Execute()
	if err != nil {
		return fmt.Errorf("pubnub publish (status %d): %w", st.StatusCode, err)
	}
	return nil
}
