package trading

import "sync"

// symbolLocks hands out one mutex per symbol. A price tick on the
// market-data channel and a fill on the account channel can race on the
// same symbol's position and stop state; everything that mutates
// per-symbol state grabs this first.
type symbolLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSymbolLocks() *symbolLocks {
	return &symbolLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *symbolLocks) forSymbol(symbol string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[symbol]
	if !ok {
		m = &sync.Mutex{}
		l.locks[symbol] = m
	}
	return m
}
