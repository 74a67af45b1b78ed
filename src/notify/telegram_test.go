package notify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradeagent/src/notify"
)

func TestUnconfiguredNotifierDropsWithoutNetwork(t *testing.T) {
	n := notify.NewTelegramNotifier(notify.Config{})
	require.NotPanics(t, func() { n.Send("hello") })
}

func TestNopNotifierSatisfiesInterface(t *testing.T) {
	var n notify.Notifier = notify.NopNotifier{}
	require.NotPanics(t, func() { n.Send("hello") })
}
