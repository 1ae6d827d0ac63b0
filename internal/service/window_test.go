package service

import "testing"

func TestSaleWindowClosed(t *testing.T) {
	cases := []struct {
		name    string
		now     int64
		endTime int64
		want    bool
	}{
		{"窗口内", 999, 1000, false},
		{"到点即停售", 1000, 1000, true},
		{"已过点", 1001, 1000, true},
	}
	for _, c := range cases {
		if got := saleWindowClosed(c.now, c.endTime); got != c.want {
			t.Fatalf("%s: saleWindowClosed(%d, %d) = %v, want %v",
				c.name, c.now, c.endTime, got, c.want)
		}
	}
}

func TestEmergencyWindowOpen(t *testing.T) {
	const unlock, window = 10_000, 5_000
	cases := []struct {
		name string
		now  int64
		want bool
	}{
		{"解锁前", unlock - 1, false},
		{"解锁时刻", unlock, false},
		{"窗口期内", unlock + window - 1, false},
		{"边界时刻仍属等待期", unlock + window, false},
		{"窗口期后放行", unlock + window + 1, true},
	}
	for _, c := range cases {
		if got := emergencyWindowOpen(c.now, unlock, window); got != c.want {
			t.Fatalf("%s: emergencyWindowOpen(%d, %d, %d) = %v, want %v",
				c.name, c.now, int64(unlock), int64(window), got, c.want)
		}
	}
}
