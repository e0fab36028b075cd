package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// SnapshotVersion is the current on-disk layout of IndexSnapshot.
const SnapshotVersion = 1

// ErrMalformedData indicates encoded bytes could not be decoded.
var ErrMalformedData = errors.New("malformed encoded data")

// IndexSnapshot is the persisted form of a built index.
type IndexSnapshot struct {
	Version int
	BuiltAt time.Time
	Records []*DocumentRecord
}

// DocumentRecordMUS encodes DocumentRecord values in MUS format.
var DocumentRecordMUS = documentRecordMUS{}

// IndexSnapshotMUS encodes IndexSnapshot values in MUS format.
var IndexSnapshotMUS = indexSnapshotMUS{}

// BusinessFactsMUS encodes BusinessFacts values in MUS format.
var BusinessFactsMUS = businessFactsMUS{}

type documentRecordMUS struct{}

func (documentRecordMUS) Size(v DocumentRecord) (size int) {
	size += ord.String.Size(v.Path)
	size += ord.String.Size(v.Filename)
	size += ord.String.Size(v.DateToken)
	size += varint.Int.Size(v.Year)
	size += varint.Int.Size(v.Month)
	size += ord.String.Size(v.Title)
	size += varint.Int.Size(len(v.Keywords))
	for _, k := range v.Keywords {
		size += ord.String.Size(k)
	}
	size += ord.String.Size(v.Drafter)
	size += ord.String.Size(v.Excerpt)
	size += ord.Bool.Size(v.HasText)
	size += ord.Bool.Size(v.ImageOnly)
	for _, field := range AllFactFields {
		size += factSize(v.Facts.Get(field))
	}
	size += ord.String.Size(string(v.ExtractError))
	size += varint.Int64.Size(timeToMicro(v.IndexedAt))
	return size
}

func (documentRecordMUS) Marshal(v DocumentRecord, bs []byte) (n int) {
	n += ord.String.Marshal(v.Path, bs[n:])
	n += ord.String.Marshal(v.Filename, bs[n:])
	n += ord.String.Marshal(v.DateToken, bs[n:])
	n += varint.Int.Marshal(v.Year, bs[n:])
	n += varint.Int.Marshal(v.Month, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += varint.Int.Marshal(len(v.Keywords), bs[n:])
	for _, k := range v.Keywords {
		n += ord.String.Marshal(k, bs[n:])
	}
	n += ord.String.Marshal(v.Drafter, bs[n:])
	n += ord.String.Marshal(v.Excerpt, bs[n:])
	n += ord.Bool.Marshal(v.HasText, bs[n:])
	n += ord.Bool.Marshal(v.ImageOnly, bs[n:])
	for _, field := range AllFactFields {
		n += factMarshal(v.Facts.Get(field), bs[n:])
	}
	n += ord.String.Marshal(string(v.ExtractError), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.IndexedAt), bs[n:])
	return n
}

func (documentRecordMUS) Unmarshal(bs []byte) (v DocumentRecord, n int, err error) {
	d := decoder{bs: bs}
	v.Path = d.readString()
	v.Filename = d.readString()
	v.DateToken = d.readString()
	v.Year = d.readInt()
	v.Month = d.readInt()
	v.Title = d.readString()
	count := d.readLength()
	if count > 0 {
		v.Keywords = make([]string, 0, count)
		for i := 0; i < count && d.err == nil; i++ {
			v.Keywords = append(v.Keywords, d.readString())
		}
	}
	v.Drafter = d.readString()
	v.Excerpt = d.readString()
	v.HasText = d.readBool()
	v.ImageOnly = d.readBool()
	for _, field := range AllFactFields {
		v.Facts.Merge(field, d.readFact())
	}
	v.ExtractError = Reason(d.readString())
	v.IndexedAt = microToTime(d.readInt64())
	return v, d.n, d.err
}

type indexSnapshotMUS struct{}

func (indexSnapshotMUS) Size(v IndexSnapshot) (size int) {
	size += varint.Int.Size(v.Version)
	size += varint.Int64.Size(timeToMicro(v.BuiltAt))
	size += varint.Int.Size(len(v.Records))
	for _, r := range v.Records {
		size += DocumentRecordMUS.Size(*r)
	}
	return size
}

func (indexSnapshotMUS) Marshal(v IndexSnapshot, bs []byte) (n int) {
	n += varint.Int.Marshal(v.Version, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.BuiltAt), bs[n:])
	n += varint.Int.Marshal(len(v.Records), bs[n:])
	for _, r := range v.Records {
		n += DocumentRecordMUS.Marshal(*r, bs[n:])
	}
	return n
}

func (indexSnapshotMUS) Unmarshal(bs []byte) (v IndexSnapshot, n int, err error) {
	d := decoder{bs: bs}
	v.Version = d.readInt()
	v.BuiltAt = microToTime(d.readInt64())
	count := d.readLength()
	if d.err != nil {
		return v, d.n, d.err
	}
	if v.Version != SnapshotVersion {
		return v, d.n, fmt.Errorf("%w: unsupported snapshot version %d", ErrMalformedData, v.Version)
	}
	v.Records = make([]*DocumentRecord, 0, count)
	for i := 0; i < count; i++ {
		record, rn, rerr := DocumentRecordMUS.Unmarshal(bs[d.n:])
		d.n += rn
		if rerr != nil {
			return v, d.n, rerr
		}
		v.Records = append(v.Records, &record)
	}
	return v, d.n, nil
}

type businessFactsMUS struct{}

func (businessFactsMUS) Size(v BusinessFacts) (size int) {
	for _, field := range AllFactFields {
		size += factSize(v.Get(field))
	}
	return size
}

func (businessFactsMUS) Marshal(v BusinessFacts, bs []byte) (n int) {
	for _, field := range AllFactFields {
		n += factMarshal(v.Get(field), bs[n:])
	}
	return n
}

func (businessFactsMUS) Unmarshal(bs []byte) (v BusinessFacts, n int, err error) {
	d := decoder{bs: bs}
	for _, field := range AllFactFields {
		v.Merge(field, d.readFact())
	}
	return v, d.n, d.err
}

func factSize(f Fact) int {
	return ord.String.Size(f.Value) + varint.Int.Size(f.Confidence) + ord.String.Size(f.Rule)
}

func factMarshal(f Fact, bs []byte) (n int) {
	n += ord.String.Marshal(f.Value, bs[n:])
	n += varint.Int.Marshal(f.Confidence, bs[n:])
	n += ord.String.Marshal(f.Rule, bs[n:])
	return n
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// decoder tracks the read offset and first error while unmarshalling
// a sequence of fields. Once err is set every read is a no-op.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) readString() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) readInt() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) readInt64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) readBool() bool {
	if d.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

// readLength reads a collection length, rejecting values that cannot fit in the
// remaining input.
func (d *decoder) readLength() int {
	l := d.readInt()
	if d.err == nil && (l < 0 || l > len(d.bs)-d.n) {
		d.err = fmt.Errorf("%w: length %d", ErrMalformedData, l)
		return 0
	}
	return l
}

func (d *decoder) readFact() Fact {
	return Fact{Value: d.readString(), Confidence: d.readInt(), Rule: d.readString()}
}
