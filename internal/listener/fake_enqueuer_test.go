package listener

import (
	"context"
	"time"
)

type enqueueCall struct {
	taskType          string
	dedupKey          string
	triggeringEventID int64
	timeout           time.Duration
	args              any
}

type fakeEnqueuer struct {
	calls []enqueueCall
	err   error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, taskType, dedupKey string, triggeringEventID int64, timeout time.Duration, args any) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, enqueueCall{taskType, dedupKey, triggeringEventID, timeout, args})
	return nil
}
