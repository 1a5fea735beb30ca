package core

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for everything persisted in BadgerDB. Timestamps are
// stored as Unix microseconds. Field order is the wire format; append new
// fields at the end only.

var (
	// IDMUS serializes entity IDs.
	IDMUS = idSer{}
	// IndexEntryMUS serializes persisted index entries.
	IndexEntryMUS = indexEntrySer{}
	// WatermarkMUS serializes per-mailbox ingestion watermarks.
	WatermarkMUS = watermarkSer{}

	vectorMUS = ord.NewSliceSer[float32](varint.Float32)
)

var (
	_ mus.Serializer[ID]         = idSer{}
	_ mus.Serializer[IndexEntry] = indexEntrySer{}
	_ mus.Serializer[Watermark]  = watermarkSer{}
)

type idSer struct{}

func (idSer) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idSer) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idSer) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idSer) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type indexEntrySer struct{}

func (indexEntrySer) Marshal(e IndexEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(e.ChunkId, bs)
	n += IDMUS.Marshal(e.MessageId, bs[n:])
	n += varint.Int.Marshal(e.Ordinal, bs[n:])
	n += ord.String.Marshal(e.Text, bs[n:])
	n += vectorMUS.Marshal(e.Vector, bs[n:])
	n += ord.String.Marshal(e.From, bs[n:])
	n += ord.String.Marshal(e.Subject, bs[n:])
	n += varint.Int64.Marshal(e.Timestamp.UnixMicro(), bs[n:])
	n += varint.Int.Marshal(int(e.Classification), bs[n:])
	n += varint.Int.Marshal(e.HeuristicVersion, bs[n:])
	n += ord.String.Marshal(e.EmbeddingVersion, bs[n:])
	n += varint.Int64.Marshal(e.InsertedAt.UnixMicro(), bs[n:])
	return n
}

func (indexEntrySer) Unmarshal(bs []byte) (e IndexEntry, n int, err error) {
	var n1 int
	if e.ChunkId, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if e.MessageId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Vector, n1, err = vectorMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.From, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Subject, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	e.Timestamp = time.UnixMicro(micros).UTC()
	var cls int
	if cls, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	e.Classification = Classification(cls)
	if e.HeuristicVersion, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.EmbeddingVersion, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	e.InsertedAt = time.UnixMicro(micros).UTC()
	return
}

func (indexEntrySer) Size(e IndexEntry) (size int) {
	size = IDMUS.Size(e.ChunkId)
	size += IDMUS.Size(e.MessageId)
	size += varint.Int.Size(e.Ordinal)
	size += ord.String.Size(e.Text)
	size += vectorMUS.Size(e.Vector)
	size += ord.String.Size(e.From)
	size += ord.String.Size(e.Subject)
	size += varint.Int64.Size(e.Timestamp.UnixMicro())
	size += varint.Int.Size(int(e.Classification))
	size += varint.Int.Size(e.HeuristicVersion)
	size += ord.String.Size(e.EmbeddingVersion)
	size += varint.Int64.Size(e.InsertedAt.UnixMicro())
	return size
}

func (s indexEntrySer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type watermarkSer struct{}

func (watermarkSer) Marshal(w Watermark, bs []byte) (n int) {
	n = ord.String.Marshal(w.Mailbox, bs)
	n += varint.Uint32.Marshal(w.UIDValidity, bs[n:])
	n += varint.Uint32.Marshal(w.LastUID, bs[n:])
	n += varint.Int64.Marshal(w.LastTimestamp.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(w.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (watermarkSer) Unmarshal(bs []byte) (w Watermark, n int, err error) {
	var n1 int
	if w.Mailbox, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if w.UIDValidity, n1, err = varint.Uint32.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if w.LastUID, n1, err = varint.Uint32.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	w.LastTimestamp = time.UnixMicro(micros).UTC()
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	w.UpdatedAt = time.UnixMicro(micros).UTC()
	return
}

func (watermarkSer) Size(w Watermark) (size int) {
	size = ord.String.Size(w.Mailbox)
	size += varint.Uint32.Size(w.UIDValidity)
	size += varint.Uint32.Size(w.LastUID)
	size += varint.Int64.Size(w.LastTimestamp.UnixMicro())
	size += varint.Int64.Size(w.UpdatedAt.UnixMicro())
	return size
}

func (s watermarkSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
