package genetic

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// maxRecordLen bounds name and parameter lengths read from disk.
const maxRecordLen = 1 << 24

// Genotype file record, little-endian:
//
//	nameLen i32 | name [nameLen]byte | evaluation f32 | fitness f32 |
//	paramCount i32 | params [paramCount]f32

// WriteTo encodes g as one genotype record.
func (g *Genotype) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 4)
	var n int64

	put := func(v uint32) error {
		binary.LittleEndian.PutUint32(buf, v)
		m, err := bw.Write(buf)
		n += int64(m)
		return err
	}

	if err := put(uint32(len(g.Name))); err != nil {
		return n, err
	}
	m, err := bw.WriteString(g.Name)
	n += int64(m)
	if err != nil {
		return n, err
	}
	if err := put(math.Float32bits(g.Evaluation)); err != nil {
		return n, err
	}
	if err := put(math.Float32bits(g.Fitness)); err != nil {
		return n, err
	}
	if err := put(uint32(len(g.parameters))); err != nil {
		return n, err
	}
	for _, p := range g.parameters {
		if err := put(math.Float32bits(p)); err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// ReadGenotype decodes one genotype record.
func ReadGenotype(r io.Reader) (*Genotype, error) {
	br := bufio.NewReader(r)
	buf := make([]byte, 4)

	next := func() (uint32, error) {
		if _, err := io.ReadFull(br, buf); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint32(buf), nil
	}

	nameLen, err := next()
	if err != nil {
		return nil, fmt.Errorf("reading name length: %w", err)
	}
	if nameLen > maxRecordLen {
		return nil, fmt.Errorf("name length %d exceeds limit", nameLen)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(br, name); err != nil {
		return nil, fmt.Errorf("reading name: %w", err)
	}

	eval, err := next()
	if err != nil {
		return nil, fmt.Errorf("reading evaluation: %w", err)
	}
	fit, err := next()
	if err != nil {
		return nil, fmt.Errorf("reading fitness: %w", err)
	}
	count, err := next()
	if err != nil {
		return nil, fmt.Errorf("reading parameter count: %w", err)
	}
	if count > maxRecordLen {
		return nil, fmt.Errorf("parameter count %d exceeds limit", count)
	}

	params := make([]float32, count)
	for i := range params {
		v, err := next()
		if err != nil {
			return nil, fmt.Errorf("reading parameter %d: %w", i, err)
		}
		params[i] = math.Float32frombits(v)
	}

	return &Genotype{
		Name:       string(name),
		Evaluation: math.Float32frombits(eval),
		Fitness:    math.Float32frombits(fit),
		parameters: params,
	}, nil
}

// SaveToFile writes g to path, replacing any existing file atomically.
func (g *Genotype) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".genotype-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGenotypeIO, err)
	}
	tmpPath := tmp.Name()

	if _, err := g.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %w", ErrGenotypeIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrGenotypeIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrGenotypeIO, err)
	}
	return nil
}

// LoadFromFile reads a genotype record from path.
func LoadFromFile(path string) (*Genotype, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenotypeIO, err)
	}
	defer f.Close()

	g, err := ReadGenotype(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGenotypeIO, path, err)
	}
	return g, nil
}

// LoadFile restores g in place from path. The stored parameter count must
// match g's, otherwise g is left untouched and ErrSchemaMismatch is returned.
func (g *Genotype) LoadFile(path string) error {
	loaded, err := LoadFromFile(path)
	if err != nil {
		return err
	}
	if loaded.ParameterCount() != g.ParameterCount() {
		return fmt.Errorf("%w: file has %d parameters, genotype has %d",
			ErrSchemaMismatch, loaded.ParameterCount(), g.ParameterCount())
	}
	g.Name = loaded.Name
	g.Evaluation = loaded.Evaluation
	g.Fitness = loaded.Fitness
	copy(g.parameters, loaded.parameters)
	return nil
}
