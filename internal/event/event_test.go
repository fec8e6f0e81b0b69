package event

import "testing"

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	if !q.Send(Event{Type: PidUpdated}) || !q.Send(Event{Type: PidUpdated}) {
		t.Fatal("send into empty queue failed")
	}
	if q.Send(Event{Type: PidUpdated}) {
		t.Fatal("send into full queue succeeded")
	}
	if q.Len() != 2 {
		t.Fatalf("len=%d want 2", q.Len())
	}
}

func TestQueueReceive(t *testing.T) {
	q := NewQueue(1)
	if _, ok := q.Receive(); ok {
		t.Fatal("receive from empty queue succeeded")
	}
	q.Send(Event{Type: GyroRead})
	e, ok := q.Receive()
	if !ok || e.Type != GyroRead {
		t.Fatalf("got %v,%v want gyro_read", e, ok)
	}
}
