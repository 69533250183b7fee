package proximity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/denysvitali/proximity-go/model"
)

type fakeAdvertiser struct {
	mu     sync.Mutex
	events []string
	active bool
}

func (f *fakeAdvertiser) Start(adv model.Advertisement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		return errAlreadyActive
	}
	f.active = true
	f.events = append(f.events, "start "+adv.Payload.String())
	return nil
}

func (f *fakeAdvertiser) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.events = append(f.events, "stop")
	return nil
}

func (f *fakeAdvertiser) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

var errAlreadyActive = errors.New("advertisement already active")

func TestBroadcasterRotate(t *testing.T) {
	adv := &fakeAdvertiser{}
	b := NewBroadcaster(GAEN{}, mustKey(t, "foo"), adv)

	changed, err := b.Rotate(time.Unix(0, 0))
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = b.Rotate(time.Unix(599, 0))
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = b.Rotate(time.Unix(601, 0))
	require.NoError(t, err)
	require.True(t, changed)

	cur, ok := b.Current()
	require.True(t, ok)
	require.Equal(t, "a9141c2b822e1dc3fbe916c4ba64c368"+"00000000", cur.Payload.String())

	require.Equal(t, []string{
		"start ebaca2b735c90d01c361e8ca6ec167f200000000",
		"stop",
		"start a9141c2b822e1dc3fbe916c4ba64c36800000000",
	}, adv.Events())
}

func TestBroadcasterRunStopsOnCancel(t *testing.T) {
	adv := &fakeAdvertiser{}
	b := NewBroadcaster(EddystoneUIDEngine{}, model.SecretKey(EddystoneUID(1, 2)), adv)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- b.Run(ctx, time.Millisecond)
	}()
	require.Eventually(t, func() bool {
		return len(adv.Events()) > 0
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	events := adv.Events()
	require.Len(t, events, 2)
	require.Equal(t, "stop", events[1])
	_, ok := b.Current()
	require.False(t, ok)
}
