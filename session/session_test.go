// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/GermanBionicSystems/einkvnc/epd"
	"github.com/GermanBionicSystems/einkvnc/postproc"
	"github.com/GermanBionicSystems/einkvnc/rfb"
	"github.com/GermanBionicSystems/einkvnc/touch"
	"github.com/google/go-cmp/cmp"
)

type request struct {
	Rect        image.Rectangle
	Incremental bool
}

type pointer struct {
	Mask uint8
	X, Y int
}

// fakeRemote returns one batch of events per Poll.
type fakeRemote struct {
	size     image.Point
	batches  [][]rfb.Event
	requests []request
	pointers []pointer
	// requestErr is returned by RequestUpdate.
	requestErr error
	// onPoll runs during Poll, to simulate network time.
	onPoll func()
}

func (f *fakeRemote) Poll() []rfb.Event {
	if f.onPoll != nil {
		f.onPoll()
	}
	if len(f.batches) == 0 {
		return nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b
}

func (f *fakeRemote) RequestUpdate(r image.Rectangle, incremental bool) error {
	f.requests = append(f.requests, request{r, incremental})
	return f.requestErr
}

func (f *fakeRemote) SendPointer(mask uint8, x, y int) error {
	f.pointers = append(f.pointers, pointer{mask, x, y})
	return nil
}

func (f *fakeRemote) Size() image.Point {
	return f.size
}

type fakeMailbox struct {
	batches [][]touch.Message
	drains  int
}

func (f *fakeMailbox) Drain() []touch.Message {
	f.drains++
	if len(f.batches) == 0 {
		return nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b
}

type clock struct {
	t     time.Time
	slept []time.Duration
}

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Sleep(_ context.Context, d time.Duration) {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

type fixture struct {
	remote *fakeRemote
	sim    *epd.Sim
	clock  *clock
	loop   *Loop
}

func newFixture(t *testing.T, w, h, channels int, lutCfg *postproc.Config, input Mailbox) *fixture {
	t.Helper()
	sim, err := epd.NewSim(&epd.SimOpts{Width: w, Height: h, Channels: channels})
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		remote: &fakeRemote{size: image.Pt(w, h)},
		sim:    sim,
		clock:  &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	if lutCfg == nil {
		lutCfg = &postproc.DefaultConfig
	}
	f.loop = New(f.remote, sim, postproc.NewLUT(lutCfg), input, &Opts{Now: f.clock.Now, Sleep: f.clock.Sleep})
	return f
}

// bgrx returns n 32 bits pixels of the given blue, green, red values.
func bgrx(n int, b, g, r byte) []byte {
	var out []byte
	for i := 0; i < n; i++ {
		out = append(out, b, g, r, 0)
	}
	return out
}

func TestFirstWholePanelUpdateIsFull(t *testing.T) {
	f := newFixture(t, 40, 30, 1, &postproc.Config{ContrastExponent: 1, GrayPoint: 224, WhiteCutoff: 200}, nil)
	full := image.Rect(0, 0, 40, 30)
	f.remote.batches = [][]rfb.Event{{
		rfb.PutPixels{Rect: full, Samples: bgrx(40*30, 210, 0, 0), Stride: 4},
	}}

	if err := f.loop.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []epd.CommitRecord{{Rect: full, Mode: epd.Full}}
	if diff := cmp.Diff(f.sim.Commits, want); diff != "" {
		t.Errorf("commits difference (-got +want):\n%s", diff)
	}
	s := f.loop.Scheduler()
	if !s.PaintedOnce() || s.SinceFull() != 0 {
		t.Errorf("painted once %t, since full %d; want true, 0", s.PaintedOnce(), s.SinceFull())
	}
	// 210 is above the white cutoff.
	if got := f.sim.Visible(39, 29); got != (color.Gray{Y: 255}) {
		t.Errorf("Visible(39, 29) = %v, want white", got)
	}
	wantReq := []request{{Rect: full, Incremental: true}}
	if diff := cmp.Diff(f.remote.requests, wantReq); diff != "" {
		t.Errorf("requests difference (-got +want):\n%s", diff)
	}
}

func TestRegionUpdate(t *testing.T) {
	f := newFixture(t, 400, 300, 1, nil, nil)
	r := image.Rect(10, 20, 12, 21)
	f.remote.batches = [][]rfb.Event{{
		rfb.PutPixels{Rect: r, Samples: append(bgrx(1, 7, 0xFF, 0xFF), bgrx(1, 9, 0, 0)...), Stride: 4},
		rfb.EndOfFrame{},
	}}

	if err := f.loop.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []epd.CommitRecord{{Rect: r, Mode: epd.FastMono}}
	if diff := cmp.Diff(f.sim.Commits, want); diff != "" {
		t.Errorf("commits difference (-got +want):\n%s", diff)
	}
	// Only the first byte of each pixel is sampled.
	for _, tc := range []struct {
		x    int
		want uint8
	}{{10, 7}, {11, 9}} {
		if got := f.sim.Visible(tc.x, 20); got != (color.Gray{Y: tc.want}) {
			t.Errorf("Visible(%d, 20) = %v, want %d", tc.x, got, tc.want)
		}
	}
}

func TestCopyPixels(t *testing.T) {
	f := newFixture(t, 100, 100, 1, nil, nil)
	f.remote.batches = [][]rfb.Event{
		{
			rfb.PutPixels{Rect: image.Rect(0, 0, 2, 2), Samples: append(bgrx(2, 10, 0, 0), bgrx(2, 20, 0, 0)...), Stride: 4},
			rfb.EndOfFrame{},
		},
		{
			// Overlapping copy one pixel down.
			rfb.CopyPixels{Src: image.Rect(0, 0, 2, 2), Dst: image.Rect(0, 1, 2, 3)},
			rfb.EndOfFrame{},
		},
	}
	for i := 0; i < 2; i++ {
		if err := f.loop.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	var got []uint8
	for y := 0; y < 3; y++ {
		got = append(got, f.sim.Visible(0, y).(color.Gray).Y)
	}
	if diff := cmp.Diff(got, []uint8{10, 10, 20}); diff != "" {
		t.Errorf("column difference (-got +want):\n%s", diff)
	}
	if c := f.sim.Commits[len(f.sim.Commits)-1]; c.Rect != image.Rect(0, 1, 2, 3) {
		t.Errorf("last commit = %v, want the copy destination", c)
	}
}

func TestColorPanel(t *testing.T) {
	f := newFixture(t, 4, 4, 3, nil, nil)
	f.remote.batches = [][]rfb.Event{{
		rfb.PutPixels{Rect: image.Rect(1, 1, 2, 2), Samples: bgrx(1, 0x10, 0x20, 0x30), Stride: 4},
		rfb.EndOfFrame{},
	}}
	if err := f.loop.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := color.RGBAModel.Convert(f.sim.Visible(1, 1))
	if want := (color.RGBA{R: 0x30, G: 0x20, B: 0x10, A: 0xFF}); got != want {
		t.Errorf("Visible(1, 1) = %v, want %v", got, want)
	}
}

func TestTouchInput(t *testing.T) {
	mb := &fakeMailbox{batches: [][]touch.Message{
		{
			{Sample: &touch.Sample{Position: image.Pt(5, 6), Button: touch.Int32(1)}},
			{Sample: &touch.Sample{Position: image.Pt(7, 8), Distance: touch.Int32(5)}},
			{Sample: &touch.Sample{Position: image.Pt(9, 9), StylusBack: touch.Int32(1)}},
		},
		{
			{Err: &touch.PipelineError{Err: errors.New("device gone")}},
			{Sample: &touch.Sample{Position: image.Pt(1, 1)}},
		},
	}}
	f := newFixture(t, 100, 50, 1, nil, mb)
	for i := 0; i < 3; i++ {
		if err := f.loop.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	wantPtr := []pointer{{1, 5, 6}, {0, 7, 8}, {1, 9, 9}}
	if diff := cmp.Diff(f.remote.pointers, wantPtr); diff != "" {
		t.Errorf("pointer events difference (-got +want):\n%s", diff)
	}
	full := image.Rect(0, 0, 100, 50)
	wantReq := []request{
		{Rect: full, Incremental: false},
		{Rect: full, Incremental: true},
		{Rect: full, Incremental: true},
		{Rect: full, Incremental: true},
	}
	if diff := cmp.Diff(f.remote.requests, wantReq); diff != "" {
		t.Errorf("requests difference (-got +want):\n%s", diff)
	}
	// The failed pipeline is no longer drained.
	if mb.drains != 2 {
		t.Errorf("mailbox drained %d times, want 2", mb.drains)
	}
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t, 100, 50, 1, nil, nil)
	reason := errors.New("connection reset")
	f.remote.batches = [][]rfb.Event{{
		rfb.Disconnected{Reason: reason},
		rfb.PutPixels{Rect: image.Rect(0, 0, 100, 50), Samples: bgrx(5000, 0, 0, 0), Stride: 4},
	}}

	err := f.loop.Run(context.Background())
	if !errors.Is(err, ErrDisconnected) || !errors.Is(err, reason) {
		t.Fatalf("Run() = %v, want a disconnection caused by %v", err, reason)
	}
	if len(f.sim.Commits) != 0 {
		t.Errorf("events after the disconnection were processed: %v", f.sim.Commits)
	}
	if len(f.remote.requests) != 0 {
		t.Errorf("requests after the disconnection: %v", f.remote.requests)
	}
}

func TestDisconnectOrderly(t *testing.T) {
	f := newFixture(t, 10, 10, 1, nil, nil)
	f.remote.batches = [][]rfb.Event{nil, {rfb.Disconnected{}}}
	err := f.loop.Run(context.Background())
	var de *DisconnectError
	if !errors.As(err, &de) || de.Reason != nil {
		t.Fatalf("Run() = %v, want an orderly disconnection", err)
	}
	if got := err.Error(); got != "session: server disconnected" {
		t.Errorf("Error() = %q", got)
	}
}

func TestPacing(t *testing.T) {
	f := newFixture(t, 10, 10, 1, nil, nil)
	f.remote.onPoll = func() { f.clock.t = f.clock.t.Add(10 * time.Millisecond) }
	if err := f.loop.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f.clock.slept, []time.Duration{Frame - 10*time.Millisecond}); diff != "" {
		t.Errorf("sleeps difference (-got +want):\n%s", diff)
	}

	// Overrun: no sleep, the update is still requested.
	f.clock.slept = nil
	f.remote.onPoll = func() { f.clock.t = f.clock.t.Add(50 * time.Millisecond) }
	if err := f.loop.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(f.clock.slept) != 0 {
		t.Errorf("slept %v on an overrun", f.clock.slept)
	}
	if len(f.remote.requests) != 2 {
		t.Errorf("got %d update requests, want 2", len(f.remote.requests))
	}
}

func TestIdleFlush(t *testing.T) {
	f := newFixture(t, 200, 200, 1, nil, nil)
	r := image.Rect(0, 0, 20, 20)
	f.remote.batches = [][]rfb.Event{{
		rfb.PutPixels{Rect: r, Samples: bgrx(400, 0, 0, 0), Stride: 4},
		rfb.EndOfFrame{},
	}}
	if err := f.loop.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.clock.t = f.clock.t.Add(4 * time.Second)
	if err := f.loop.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []epd.CommitRecord{
		{Rect: r, Mode: epd.FastMono},
		{Rect: r, Mode: epd.Full},
	}
	if diff := cmp.Diff(f.sim.Commits, want); diff != "" {
		t.Errorf("commits difference (-got +want):\n%s", diff)
	}
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t, 10, 10, 1, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	f.remote.onPoll = func() {
		n++
		if n == 3 {
			cancel()
		}
	}
	if err := f.loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if n != 3 {
		t.Errorf("ran %d ticks, want 3", n)
	}
}

func TestStylusBackLocalRefresh(t *testing.T) {
	back := touch.Int32(1)
	in := &fakeMailbox{batches: [][]touch.Message{
		{{Sample: &touch.Sample{Position: image.Pt(1, 2), StylusBack: back}}},
	}}
	f := newFixture(t, 40, 30, 1, nil, in)
	f.remote.requestErr = errors.New("write: broken pipe")

	if err := f.loop.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []epd.CommitRecord{{Rect: image.Rect(0, 0, 40, 30), Mode: epd.Full}}
	if diff := cmp.Diff(f.sim.Commits, want); diff != "" {
		t.Fatalf("unexpected commits (-got +want)\n%s", diff)
	}
	if got := f.loop.Scheduler().Stats().Full; got != 1 {
		t.Fatalf("full refreshes = %d", got)
	}
}
