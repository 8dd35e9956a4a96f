package recorder_test

import (
	"testing"

	"github.com/hazyhaar/domloop/internal/recorder"
)

func TestRecordObservationRoundTrip(t *testing.T) {
	r := recorder.New()
	elements := []recorder.Element{{Selector: "xpath=/a[1]", Description: "Login"}}

	id := r.RecordObservation("find the login button", elements)

	want := recorder.Hash("find the login button")
	if id != want {
		t.Fatalf("id = %q, want %q", id, want)
	}

	got, ok := r.LookupObservation(id)
	if !ok {
		t.Fatal("expected observation to be present")
	}
	if got.Instruction != "find the login button" {
		t.Errorf("instruction = %q", got.Instruction)
	}
	if len(got.Result) != 1 || got.Result[0] != elements[0] {
		t.Errorf("result = %+v", got.Result)
	}
}

func TestRecordObservationOverwritesSameKey(t *testing.T) {
	r := recorder.New()

	r.RecordObservation("find the login button", []recorder.Element{{Selector: "xpath=/a[1]"}})
	r.RecordObservation("find the login button", []recorder.Element{{Selector: "xpath=/a[2]"}})

	if r.ObservationCount() != 1 {
		t.Fatalf("ObservationCount = %d, want 1 (overwrite, not append)", r.ObservationCount())
	}

	got, _ := r.LookupObservation(recorder.Hash("find the login button"))
	if got.Result[0].Selector != "xpath=/a[2]" {
		t.Errorf("expected last-write-wins, got %q", got.Result[0].Selector)
	}
}

func TestRecordActionRoundTrip(t *testing.T) {
	r := recorder.New()
	result := recorder.ActionResult{Success: true, Message: "clicked it"}

	id := r.RecordAction("click the login button", result)

	got, ok := r.LookupAction(id)
	if !ok {
		t.Fatal("expected action to be present")
	}
	if got.Result != result {
		t.Errorf("result = %+v, want %+v", got.Result, result)
	}
}

func TestLookupMiss(t *testing.T) {
	r := recorder.New()
	if _, ok := r.LookupObservation("nonexistent"); ok {
		t.Error("expected miss for unknown id")
	}
	if _, ok := r.LookupAction("nonexistent"); ok {
		t.Error("expected miss for unknown id")
	}
}
