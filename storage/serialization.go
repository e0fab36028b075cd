package storage

import (
	"fmt"

	"github.com/poiesic/docsift/core"
)

// MarshalSnapshot encodes an index snapshot.
func MarshalSnapshot(snapshot *core.IndexSnapshot) []byte {
	buf := make([]byte, core.IndexSnapshotMUS.Size(*snapshot))
	core.IndexSnapshotMUS.Marshal(*snapshot, buf)
	return buf
}

// UnmarshalSnapshot decodes an index snapshot. Any decoding failure,
// including a panic from malformed input, is reported as core.ErrIndexCorrupt.
func UnmarshalSnapshot(data []byte) (snapshot *core.IndexSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snapshot = nil
			err = fmt.Errorf("%w: %w: %v", core.ErrIndexCorrupt, ErrSerializationFailed, r)
		}
	}()

	decoded, n, err := core.IndexSnapshotMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", core.ErrIndexCorrupt, ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", core.ErrIndexCorrupt, len(data)-n)
	}
	return &decoded, nil
}

// MarshalFacts encodes business facts.
func MarshalFacts(facts core.BusinessFacts) []byte {
	buf := make([]byte, core.BusinessFactsMUS.Size(facts))
	core.BusinessFactsMUS.Marshal(facts, buf)
	return buf
}

// UnmarshalFacts decodes business facts.
func UnmarshalFacts(data []byte) (core.BusinessFacts, error) {
	facts, _, err := core.BusinessFactsMUS.Unmarshal(data)
	if err != nil {
		return core.BusinessFacts{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return facts, nil
}
