package enums

import "testing"

func TestFulfillmentNextOf(t *testing.T) {
	t.Parallel()

	if !FulfillmentStatusPending.NextOf(FulfillmentStatusConfirmed) {
		t.Fatalf("pending to confirmed is the forward step")
	}
	if !FulfillmentStatusShipped.NextOf(FulfillmentStatusDelivered) {
		t.Fatalf("shipped to delivered is the forward step")
	}
	if FulfillmentStatusPending.NextOf(FulfillmentStatusShipped) {
		t.Fatalf("pending to shipped skips states")
	}
	if FulfillmentStatusShipped.NextOf(FulfillmentStatusConfirmed) {
		t.Fatalf("backward moves are not adjacent")
	}
	if FulfillmentStatusCancelled.NextOf(FulfillmentStatusConfirmed) {
		t.Fatalf("cancelled has no forward successor")
	}
}

func TestFulfillmentTerminalStates(t *testing.T) {
	t.Parallel()

	for _, status := range []FulfillmentStatus{FulfillmentStatusDelivered, FulfillmentStatusCancelled} {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
	for _, status := range []FulfillmentStatus{FulfillmentStatusPending, FulfillmentStatusConfirmed, FulfillmentStatusProcessing, FulfillmentStatusShipped} {
		if status.IsTerminal() {
			t.Fatalf("%s should not be terminal", status)
		}
	}
}

func TestParseFulfillmentStatus(t *testing.T) {
	t.Parallel()

	status, err := ParseFulfillmentStatus("processing")
	if err != nil || status != FulfillmentStatusProcessing {
		t.Fatalf("expected processing, got %s (%v)", status, err)
	}
	if _, err := ParseFulfillmentStatus("teleported"); err == nil {
		t.Fatalf("unknown status should be rejected")
	}
}
