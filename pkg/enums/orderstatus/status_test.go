package orderstatus

import "testing"

func TestNextFollowsForwardPath(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		want     Status
		wantNext bool
	}{
		{name: "pendingToPreparing", from: Statuses.Pending, want: Statuses.Preparing, wantNext: true},
		{name: "preparingToReady", from: Statuses.Preparing, want: Statuses.Ready, wantNext: true},
		{name: "readyToDelivered", from: Statuses.Ready, want: Statuses.Delivered, wantNext: true},
		{name: "deliveredToCompleted", from: Statuses.Delivered, want: Statuses.Completed, wantNext: true},
		{name: "completedIsTerminal", from: Statuses.Completed, wantNext: false},
		{name: "cancelledIsTerminal", from: Statuses.Cancelled, wantNext: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.from.Next()
			if ok != tt.wantNext {
				t.Fatalf("Next() ok = %v, want %v", ok, tt.wantNext)
			}
			if ok && got != tt.want {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
			if tt.from.IsTerminal() == tt.wantNext {
				t.Errorf("IsTerminal() = %v, want %v", tt.from.IsTerminal(), !tt.wantNext)
			}
		})
	}
}

func TestNextNeverRevisitsEarlierStatus(t *testing.T) {
	seen := map[Status]bool{}
	current := Statuses.Pending
	for {
		if seen[current] {
			t.Fatalf("status %s visited twice", current.Name)
		}
		seen[current] = true

		next, ok := current.Next()
		if !ok {
			break
		}
		if next.Rank() <= current.Rank() {
			t.Fatalf("transition %s -> %s moves backwards", current.Name, next.Name)
		}
		current = next
	}

	if current != Statuses.Completed {
		t.Errorf("path ended at %s, want completed", current.Name)
	}
}

func TestIsActive(t *testing.T) {
	active := map[Status]bool{
		Statuses.Pending:   true,
		Statuses.Preparing: true,
		Statuses.Ready:     true,
		Statuses.Delivered: false,
		Statuses.Completed: false,
		Statuses.Cancelled: false,
	}

	for st, want := range active {
		if got := st.IsActive(); got != want {
			t.Errorf("%s.IsActive() = %v, want %v", st.Name, got, want)
		}
	}
}

func TestLabels(t *testing.T) {
	if got := Statuses.Pending.Label(); got != "New" {
		t.Errorf("Pending.Label() = %q, want %q", got, "New")
	}
	if got := Statuses.Pending.ActionLabel(); got != "Start preparing" {
		t.Errorf("Pending.ActionLabel() = %q, want %q", got, "Start preparing")
	}
	if got := Statuses.Completed.ActionLabel(); got != "" {
		t.Errorf("Completed.ActionLabel() = %q, want empty", got)
	}
	if got := Statuses.Cancelled.ActionLabel(); got != "" {
		t.Errorf("Cancelled.ActionLabel() = %q, want empty", got)
	}
}

func TestByName(t *testing.T) {
	if st := ByName("ready"); st == nil || *st != Statuses.Ready {
		t.Errorf("ByName(ready) = %v, want ready", st)
	}
	if st := ByName("accepted"); st != nil {
		t.Errorf("ByName(accepted) = %v, want nil", st)
	}
}
