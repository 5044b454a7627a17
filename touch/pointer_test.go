// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package touch

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestButtonFromCode(t *testing.T) {
	for _, tc := range []struct {
		code *int32
		want Button
		ok   bool
	}{
		{Int32(1), Primary, true},
		{Int32(0), None, true},
		{Int32(123), None, true},
		{nil, None, false},
	} {
		got, ok := ButtonFromCode(tc.code)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ButtonFromCode(%v) = %d, %t; want %d, %t", tc.code, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPointerApply(t *testing.T) {
	at := image.Pt(10, 20)
	for _, tc := range []struct {
		name    string
		samples []Sample
		want    []Event
	}{
		{
			name: "latch",
			samples: []Sample{
				{Position: at, Button: Int32(1)},
				{Position: at.Add(image.Pt(1, 1))},
				{Position: at, Button: Int32(0)},
				{Position: at},
			},
			want: []Event{
				{Button: Primary, Position: at},
				{Button: Primary, Position: at.Add(image.Pt(1, 1))},
				{Button: None, Position: at},
				{Button: None, Position: at},
			},
		},
		{
			name: "hover overrides latch",
			samples: []Sample{
				{Position: at, Button: Int32(1)},
				{Position: at, Distance: Int32(5)},
				{Position: at, Distance: Int32(0)},
			},
			want: []Event{
				{Button: Primary, Position: at},
				{Button: None, Position: at},
				{Button: Primary, Position: at},
			},
		},
		{
			name: "hover with button in same report",
			samples: []Sample{
				{Position: at, Button: Int32(1), Distance: Int32(5)},
				{Position: at},
			},
			want: []Event{
				{Button: None, Position: at},
				{Button: Primary, Position: at},
			},
		},
		{
			name: "stylus back press",
			samples: []Sample{
				{Position: at, StylusBack: Int32(1)},
				{Position: at},
				{Position: at, StylusBack: Int32(1)},
				{Position: at, StylusBack: Int32(0)},
				{Position: at, StylusBack: Int32(1)},
			},
			want: []Event{
				{Position: at, RequestFull: true},
				{Position: at},
				{Position: at},
				{Position: at},
				{Position: at, RequestFull: true},
			},
		},
		{
			name: "stylus side ignored",
			samples: []Sample{
				{Position: at, StylusSide: Int32(1)},
			},
			want: []Event{
				{Position: at},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var p Pointer
			var got []Event
			for i := range tc.samples {
				got = append(got, p.Apply(&tc.samples[i]))
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("Apply() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestPointerHoverKeepsLatch(t *testing.T) {
	var p Pointer
	p.Apply(&Sample{Button: Int32(1)})
	if e := p.Apply(&Sample{Distance: Int32(5)}); e.Button != None {
		t.Fatalf("Apply() while hovering = %d, want None", e.Button)
	}
	if got := p.Last(); got != Primary {
		t.Errorf("Last() = %d, want Primary", got)
	}
}
