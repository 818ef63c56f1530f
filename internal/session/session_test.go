package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountInfoValid(t *testing.T) {
	tests := []struct {
		name  string
		info  AccountInfo
		valid bool
	}{
		{"empty", AccountInfo{}, false},
		{"id only", AccountInfo{ID: 7}, false},
		{"name only", AccountInfo{UserName: "ada"}, false},
		{"both", AccountInfo{ID: 7, UserName: "ada"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.info.Valid())
		})
	}
}

func TestCellSuppressesEqualValues(t *testing.T) {
	var c Cell[int]
	var notified int
	c.Subscribe(func(int) { notified++ })

	c.Set(1)
	c.Set(1)
	c.Set(2)
	c.Set(2)

	assert.Equal(t, 2, notified, "equal sets must not notify")
	assert.Equal(t, 2, c.Get())
}

func TestStateDerivesSignedIn(t *testing.T) {
	st := NewState()
	require.False(t, st.SignedIn())

	var transitions []bool
	st.OnSignedInChange(func(v bool) { transitions = append(transitions, v) })

	info := AccountInfo{ID: 42, UserName: "ada", ProfileURL: "https://scorecloud.app/user/42"}
	st.SetAccount(info)
	assert.True(t, st.SignedIn())
	assert.Equal(t, info, st.Account())

	// Same account again: no notification.
	st.SetAccount(info)
	assert.Equal(t, []bool{true}, transitions)

	st.SetAccount(AccountInfo{})
	assert.False(t, st.SignedIn())
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestStateAccountNotifications(t *testing.T) {
	st := NewState()

	var count int
	st.OnAccountChange(func(AccountInfo) { count++ })

	st.SetAccount(AccountInfo{ID: 1, UserName: "a"})
	st.SetAccount(AccountInfo{ID: 1, UserName: "a"})
	st.SetAccount(AccountInfo{ID: 2, UserName: "b"})

	assert.Equal(t, 2, count)
}

func TestCellConcurrentReadersAndWriters(t *testing.T) {
	var c Cell[int]
	c.Subscribe(func(int) {})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set(i*1000 + j)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = c.Get()
			}
		}()
	}
	wg.Wait()

	assert.NotZero(t, c.Get())
}
