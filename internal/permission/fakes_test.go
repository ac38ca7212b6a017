package permission

import (
	"context"
	"sync/atomic"

	"github.com/rbright/meowspeak/internal/audio"
)

type fakeStatus struct {
	state State
	err   error
	saved []State
}

func (f *fakeStatus) Query(context.Context) (State, error) { return f.state, f.err }

func (f *fakeStatus) Save(state State) error {
	f.saved = append(f.saved, state)
	return nil
}

type fakePlugin struct {
	checkState   State
	checkErr     error
	requestState State
	requestErr   error
	requests     atomic.Int32
}

func (f *fakePlugin) Check(context.Context) (State, error) { return f.checkState, f.checkErr }

func (f *fakePlugin) Request(context.Context) (State, error) {
	f.requests.Add(1)
	return f.requestState, f.requestErr
}

type fakeStream struct {
	released atomic.Int32
}

func (*fakeStream) Device() audio.Device  { return audio.Device{ID: "fake-mic"} }
func (*fakeStream) BytesCaptured() int64  { return 0 }
func (*fakeStream) StopAllTracks()        {}
func (f *fakeStream) Release() error      { f.released.Add(1); return nil }

type fakeDevices struct {
	err      error
	acquires atomic.Int32
	stream   *fakeStream
}

func (f *fakeDevices) Acquire(context.Context, audio.Constraints) (audio.Stream, error) {
	f.acquires.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.stream == nil {
		f.stream = &fakeStream{}
	}
	return f.stream, nil
}

type fakeProvider struct {
	checkState   State
	requestState State
	requestErr   error
	requests     atomic.Int32
}

func (f *fakeProvider) Check(context.Context) State { return f.checkState }

func (f *fakeProvider) Request(context.Context) (State, error) {
	f.requests.Add(1)
	return f.requestState, f.requestErr
}
