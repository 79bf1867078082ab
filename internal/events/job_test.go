// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package events

import (
	"testing"
)

func TestIndexJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     IndexJob
		wantErr bool
	}{
		{"upsert", IndexJob{ItemID: 1, Reason: ReasonUpsert}, false},
		{"manual", IndexJob{ItemID: 1, Reason: ReasonManual, Force: true}, false},
		{"backfill", IndexJob{ItemID: 9, Reason: ReasonBackfill}, false},
		{"zero id", IndexJob{ItemID: 0, Reason: ReasonUpsert}, true},
		{"negative id", IndexJob{ItemID: -3, Reason: ReasonUpsert}, true},
		{"missing reason", IndexJob{ItemID: 1}, true},
		{"unknown reason", IndexJob{ItemID: 1, Reason: "cron"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarshalJob(t *testing.T) {
	job := NewIndexJob(42, ReasonManual)
	job.Force = true
	job.CorrelationID = "abc"

	data, err := MarshalJob(&job)
	if err != nil {
		t.Fatalf("MarshalJob: %v", err)
	}
	got, err := UnmarshalJob(data)
	if err != nil {
		t.Fatalf("UnmarshalJob: %v", err)
	}
	if got.ItemID != 42 || got.Reason != ReasonManual || !got.Force || got.CorrelationID != "abc" {
		t.Errorf("got %+v", got)
	}
	if !got.RequestedAt.Equal(job.RequestedAt) {
		t.Errorf("requested_at = %v, want %v", got.RequestedAt, job.RequestedAt)
	}
}

func TestMarshalJobRejectsInvalid(t *testing.T) {
	if _, err := MarshalJob(&IndexJob{}); err == nil {
		t.Error("expected validation error")
	}
	if _, err := UnmarshalJob([]byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := UnmarshalJob([]byte(`{"item_id":0,"reason":"upsert"}`)); err == nil {
		t.Error("expected validation error for zero id")
	}
}
