package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventBusPublishDocDeliversToSubscriber(t *testing.T) {
	bus := NewEventBus(nil)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	bus.PublishDoc(DocEvent{Kind: DocCreated, Path: "a.md"})

	select {
	case msg := <-sub.Events():
		ev, ok := msg.(Event)
		require.True(t, ok)
		require.NotNil(t, ev.Doc)
		require.Equal(t, DocCreated, ev.Doc.Kind)
		require.Equal(t, "a.md", ev.Doc.Path)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus(nil)
	sub := bus.Subscribe()
	sub.Unsubscribe()

	_, ok := <-sub.Events()
	require.False(t, ok)
}

func TestEventBusMultipleSubscribersAllReceive(t *testing.T) {
	bus := NewEventBus(nil)
	sub1 := bus.Subscribe()
	sub2 := bus.Subscribe()
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	bus.PublishFolder(FolderEvent{Kind: FolderDeleted, Path: "notes"})

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case msg := <-sub.Events():
			ev, ok := msg.(Event)
			require.True(t, ok)
			require.NotNil(t, ev.Folder)
			require.Equal(t, FolderDeleted, ev.Folder.Kind)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}
