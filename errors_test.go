// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cosnicolaou/p7z"
)

func TestBatchRejectsEmptyItems(t *testing.T) {
	c := p7z.NewCoordinator()
	defer c.Close()
	_, err := c.CompressBatch(context.Background(), nil, io.Discard, nil)
	if err == nil {
		t.Fatalf("expected an error for an empty batch")
	}
	var perr *p7z.Error
	if !errors.As(err, &perr) {
		t.Fatalf("error is not a *p7z.Error: %v", err)
	}
	if perr.Kind != p7z.KindInvalidArgument {
		t.Errorf("Kind = %v, want InvalidArgument", perr.Kind)
	}
}

func TestOutcomeStrings(t *testing.T) {
	cases := map[p7z.Outcome]string{
		p7z.OutcomeOK:      "ok",
		p7z.OutcomePartial: "partial",
		p7z.OutcomeFatal:   "fatal",
	}
	for outcome, want := range cases {
		if got := outcome.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", outcome, got, want)
		}
	}
}

func TestKindStrings(t *testing.T) {
	if p7z.KindIO.String() != "io error" {
		t.Errorf("KindIO.String() = %q", p7z.KindIO.String())
	}
	if p7z.KindCoder.String() != "coder error" {
		t.Errorf("KindCoder.String() = %q", p7z.KindCoder.String())
	}
}
