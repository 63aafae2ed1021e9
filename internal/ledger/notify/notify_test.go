package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHubFanOutAndLimit(t *testing.T) {
	hub := NewHub(zap.NewNop(), 3)

	var got []Notice
	hub.Add(NotifierFunc(func(n Notice) { got = append(got, n) }))

	for i := 0; i < 5; i++ {
		hub.Notify(Notice{Level: LevelInfo, Message: fmt.Sprintf("msg-%d", i)})
	}

	assert.Len(t, got, 5)
	recent := hub.Recent()
	assert.Len(t, recent, 3)
	assert.Equal(t, "msg-2", recent[0].Message)
	assert.Equal(t, "msg-4", recent[2].Message)
	assert.False(t, recent[0].At.IsZero())
}
