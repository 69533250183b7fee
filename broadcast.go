package proximity

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/denysvitali/proximity-go/model"
)

// Advertiser is the radio layer: it publishes bytes under a service tag.
type Advertiser interface {
	Start(adv model.Advertisement) error
	Stop() error
}

// Broadcaster keeps one advertisement of a secret on air and replaces it
// when the identifier rotates.
type Broadcaster struct {
	engine     Engine
	secret     model.SecretKey
	advertiser Advertiser
	current    *model.Advertisement
}

func NewBroadcaster(engine Engine, secret model.SecretKey, advertiser Advertiser) *Broadcaster {
	return &Broadcaster{engine: engine, secret: secret, advertiser: advertiser}
}

// Rotate mints the advertisement for now. A changed payload replaces the
// current one only after the current one has been stopped.
func (b *Broadcaster) Rotate(now time.Time) (bool, error) {
	adv, err := Advertise(b.engine, b.secret, now)
	if err != nil {
		return false, err
	}
	if b.current != nil && b.current.ServiceTag == adv.ServiceTag && bytes.Equal(b.current.Payload, adv.Payload) {
		return false, nil
	}
	if b.current != nil {
		if err := b.advertiser.Stop(); err != nil {
			return false, fmt.Errorf("unable to stop advertisement: %w", err)
		}
		b.current = nil
	}
	logger.Infof("%s advertisement under %s: %s", adv.Protocol, adv.ServiceTag, adv.Payload)
	if err := b.advertiser.Start(adv); err != nil {
		return false, fmt.Errorf("unable to start advertisement: %w", err)
	}
	b.current = &adv
	return true, nil
}

func (b *Broadcaster) Current() (model.Advertisement, bool) {
	if b.current == nil {
		return model.Advertisement{}, false
	}
	return *b.current, true
}

// Run rotates every interval until ctx is done, then withdraws the advertisement.
func (b *Broadcaster) Run(ctx context.Context, interval time.Duration) error {
	if _, err := b.Rotate(time.Now()); err != nil {
		return err
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return b.stop()
		case now := <-t.C:
			if _, err := b.Rotate(now); err != nil {
				logger.Errorf("unable to rotate advertisement: %v", err)
			}
		}
	}
}

func (b *Broadcaster) stop() error {
	if b.current == nil {
		return nil
	}
	b.current = nil
	return b.advertiser.Stop()
}
