package snowflake

import (
	"fmt"
	"sync"
	"time"
)

// Generator produces time-ordered 64-bit IDs. The embedded millisecond
// timestamp is the record's creation time, so an ID doubles as the
// message's original-timestamp identity across edits.
type Generator struct {
	workerID int64

	mutex         sync.Mutex
	lastTimestamp int64
	lastIncrement int64
}

const (
	timestampLength int64 = 42
	timestampPos          = 64 - timestampLength
	workerLength    int64 = 10
	workerPos             = timestampPos - workerLength
	incrementLength       = 64 - (timestampLength + workerLength)

	maxWorkerValue    = int64(1)<<workerLength - 1
	maxIncrementValue = int64(1)<<incrementLength - 1
)

func New(workerID int64) (*Generator, error) {
	if workerID > maxWorkerValue || workerID < 0 {
		return nil, fmt.Errorf("worker ID %d is outside the valid range [0, %d]", workerID, maxWorkerValue)
	}

	return &Generator{workerID: workerID}, nil
}

func (g *Generator) Generate() (int64, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	timestamp := time.Now().UnixMilli()
	if timestamp == g.lastTimestamp {
		g.lastIncrement += 1
		if g.lastIncrement > maxIncrementValue {
			return 0, fmt.Errorf("increment overflow after increment reached %d", g.lastIncrement)
		}
	} else {
		g.lastIncrement = 0
		g.lastTimestamp = timestamp
	}

	return timestamp<<timestampPos | g.workerID<<workerPos | g.lastIncrement, nil
}

// Timestamp extracts the creation time embedded in an ID.
func Timestamp(id int64) time.Time {
	return time.UnixMilli(id >> timestampPos)
}
