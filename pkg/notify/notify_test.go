package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncAdapter(t *testing.T) {
	var got Notification
	n := Func(func(notification Notification) { got = notification })
	n.Notify(Notification{Title: "hi", Severity: SeverityInfo})
	assert.Equal(t, "hi", got.Title)
}

func TestChannelDelivery(t *testing.T) {
	c := NewChannel(4)
	c.Notify(Notification{Title: "one"})
	c.Notify(Notification{Title: "two"})

	assert.Equal(t, "one", (<-c.C()).Title)
	assert.Equal(t, "two", (<-c.C()).Title)
}

func TestChannelEvictsOldestWhenFull(t *testing.T) {
	c := NewChannel(2)
	c.Notify(Notification{Title: "one"})
	c.Notify(Notification{Title: "two"})
	c.Notify(Notification{Title: "three"}) // evicts "one"

	require.Len(t, c.C(), 2)
	assert.Equal(t, "two", (<-c.C()).Title)
	assert.Equal(t, "three", (<-c.C()).Title)
}

func TestChannelDefaultSize(t *testing.T) {
	c := NewChannel(0)
	for i := 0; i < 20; i++ {
		c.Notify(Notification{Title: "n"})
	}
	assert.Equal(t, 16, len(c.C()))
}

func TestDiscard(t *testing.T) {
	Discard.Notify(Notification{Title: "dropped"})
}
