package worker

import (
	"fmt"
	"sync/atomic"
)

// Namer hands out human-readable worker names round-robin. Names only
// exist for log readability; nothing else keys on them.
type Namer struct {
	prefix string
	n      atomic.Int64
}

func NewNamer(prefix string) *Namer {
	if prefix == "" {
		prefix = "mailer"
	}
	return &Namer{prefix: prefix}
}

func (nm *Namer) Next() string {
	return fmt.Sprintf("%s-%d", nm.prefix, nm.n.Add(1))
}
