package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/danielpatrickdp/ethics-harness/internal/ethics"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

// Version is bumped whenever the body layout changes incompatibly.
const Version = 1

// Header is the first line of an encoded snapshot, readable without decoding
// the body.
type Header struct {
	Version int    `json:"version"`
	Domain  string `json:"domain"`
	Step    int    `json:"step"`
}

// Config is the construction input of a run. Seed plus the decision log is
// enough to rebuild the run from scratch.
type Config struct {
	Domain     string       `json:"domain"`
	Seed       uint64       `json:"seed"`
	TotalSteps int          `json:"total_steps"`
	Variant    gate.Variant `json:"variant"`
}

// Snapshot is the full persisted state of one run.
type Snapshot struct {
	Header Header       `json:"header"`
	Config Config       `json:"config"`
	World  world.World  `json:"world"`
	Ethics ethics.State `json:"ethics"`
	RNG    []byte       `json:"rng"`
}

// #region codec
// Encode writes snap as a zstd stream: one JSON header line, then the JSON body.
func Encode(w io.Writer, snap Snapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("encode body: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a stream written by Encode.
func Decode(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var hdr Header
	if err := json.Unmarshal(line, &hdr); err != nil {
		return snap, fmt.Errorf("decode header: %w", err)
	}
	if hdr.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", hdr.Version)
	}

	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode body: %w", err)
	}
	return snap, nil
}

// Marshal is Encode into a byte slice.
func Marshal(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is Decode from a byte slice.
func Unmarshal(data []byte) (Snapshot, error) {
	return Decode(bytes.NewReader(data))
}

// #endregion codec

// #region files
// WriteFile encodes snap into a temp file next to path and renames it into
// place, so a failed write leaves any existing file intact.
func WriteFile(path string, snap Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile decodes a snapshot written by WriteFile.
func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	return Decode(f)
}

// #endregion files
