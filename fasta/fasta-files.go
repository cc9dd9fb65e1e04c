// elSAGE: a read-context evidence engine for variant calling.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

// Package fasta provides reference sequences, either parsed from
// .fasta files or memory-mapped from .elfasta files.
package fasta

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"golang.org/x/sys/unix"
)

// FaiReference is one entry of a .fai index.
type FaiReference struct {
	Length    int32
	Offset    int64
	LineBases int32
	LineWidth int32
}

func parseFaiLine(line []byte) (contig string, ref FaiReference, err error) {
	fields := bytes.Split(line, []byte("\t"))
	if len(fields) != 5 {
		return "", ref, fmt.Errorf("expected 5 fields, got %v", len(fields))
	}
	var values [4]int64
	for i, field := range fields[1:] {
		if values[i], err = strconv.ParseInt(string(field), 10, 64); err != nil {
			return "", ref, err
		}
	}
	return string(fields[0]), FaiReference{
		Length:    int32(values[0]),
		Offset:    values[1],
		LineBases: int32(values[2]),
		LineWidth: int32(values[3]),
	}, nil
}

// ParseFai parses a .fai index. Only the lengths are used, to
// preallocate sequences in ParseFasta.
func ParseFai(filename string) (map[string]FaiReference, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fai := make(map[string]FaiReference)
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		contig, ref, err := parseFaiLine(scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("badly formatted fai file %v, line %v: %w", filename, line, err)
		}
		fai[contig] = ref
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %v: %w", filename, err)
	}
	return fai, nil
}

// contigFromHeader returns the first word after '>'.
func contigFromHeader(b []byte) string {
	fields := bytes.Fields(b[1:])
	if len(fields) == 0 {
		return ""
	}
	return string(fields[0])
}

// ToUpperAndN uppercases a base and maps IUPAC ambiguity codes to N.
func ToUpperAndN(base byte) byte {
	switch base {
	case 'A', 'C', 'G', 'T', 'N':
		return base
	case 'a', 'c', 'g', 't':
		return base - 'a' + 'A'
	}
	return 'N'
}

// ParseFasta parses a .fasta file into a map from contig names to
// uppercase sequences, with ambiguity codes mapped to N. The fai
// index is optional.
func ParseFasta(filename string, fai map[string]FaiReference) (Fasta, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(bufio.NewReader(f))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	fasta := make(Fasta)
	var contig string
	var seq []byte
	started := false

	for scanner.Scan() {
		b := scanner.Bytes()
		switch {
		case len(b) == 0:
		case b[0] == '>':
			if started {
				fasta[contig] = seq
			}
			contig, seq, started = contigFromHeader(b), nil, true
			if ref, ok := fai[contig]; ok {
				seq = make([]byte, 0, ref.Length)
			}
		case !started:
			return nil, fmt.Errorf("invalid fasta file %v: sequence before first header", filename)
		default:
			for _, c := range b {
				seq = append(seq, ToUpperAndN(c))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %v: %w", filename, err)
	}
	if !started {
		return nil, fmt.Errorf("empty fasta file %v", filename)
	}
	fasta[contig] = seq
	return fasta, nil
}

// Fasta is an in-memory reference.
type Fasta map[string][]byte

// Bases returns the reference bases for the 1-based, inclusive
// interval [start, end], clipped to the contig.
func (fasta Fasta) Bases(contig string, start, end int32) ([]byte, bool) {
	return sliceSeq(fasta[contig], start, end)
}

func sliceSeq(seq []byte, start, end int32) ([]byte, bool) {
	if seq == nil || start > end {
		return nil, false
	}
	if start < 1 {
		start = 1
	}
	if n := int32(len(seq)); end > n {
		end = n
	}
	if start > end {
		return nil, false
	}
	return seq[start-1 : end], true
}

// ContigLength returns the length of the contig, or 0 if unknown.
func (fasta Fasta) ContigLength(contig string) int32 {
	return int32(len(fasta[contig]))
}

// ElfastaMagic identifies .elfasta files.
var ElfastaMagic = []byte{0x31, 0xFA, 0x57, 0xA1} // 31FA57A1 => ELFASTA1

// An .elfasta file starts with ElfastaMagic, followed by one index
// entry per contig, followed by a newline and the concatenated
// sequences. An index entry is the contig name, a tab, and two
// fixed-width varints holding the absolute offset and the length of
// the contig's sequence.
const elfastaEntryValues = 2 * binary.MaxVarintLen64

func putFixedVarint(buf []byte, v int64) {
	binary.PutVarint(buf[:binary.MaxVarintLen64], v)
}

// ToElfasta writes a parsed reference to an .elfasta file, which
// can be memory-mapped by OpenElfasta. Contigs are written in
// sorted order.
func ToElfasta(fasta Fasta, filename string) (err error) {
	contigs := make([]string, 0, len(fasta))
	headerSize := len(ElfastaMagic) + 1
	for contig := range fasta {
		if contig == "" || bytes.ContainsAny([]byte(contig), "\t\n") {
			return fmt.Errorf("contig name %q cannot be stored in an elfasta file", contig)
		}
		contigs = append(contigs, contig)
		headerSize += len(contig) + 1 + elfastaEntryValues
	}
	sort.Strings(contigs)

	header := make([]byte, 0, headerSize)
	header = append(header, ElfastaMagic...)
	offset := int64(headerSize)
	for _, contig := range contigs {
		header = append(header, contig...)
		header = append(header, '\t')
		var values [elfastaEntryValues]byte
		putFixedVarint(values[:], offset)
		putFixedVarint(values[binary.MaxVarintLen64:], int64(len(fasta[contig])))
		header = append(header, values[:]...)
		offset += int64(len(fasta[contig]))
	}
	header = append(header, '\n')

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	out := bufio.NewWriterSize(file, 1<<20)
	if _, err = out.Write(header); err != nil {
		return err
	}
	for _, contig := range contigs {
		if _, err = out.Write(fasta[contig]); err != nil {
			return err
		}
	}
	return out.Flush()
}

// parseElfastaIndex maps contig names to slices of data.
func parseElfastaIndex(data []byte) (Fasta, error) {
	if !bytes.HasPrefix(data, ElfastaMagic) {
		return nil, errors.New("invalid magic byte sequence")
	}
	fasta := make(Fasta)
	rest := data[len(ElfastaMagic):]
	for {
		if len(rest) == 0 {
			return nil, errors.New("truncated index")
		}
		if rest[0] == '\n' {
			return fasta, nil
		}
		tab := bytes.IndexByte(rest, '\t')
		if tab < 0 || len(rest) < tab+1+elfastaEntryValues {
			return nil, errors.New("truncated index entry")
		}
		contig := string(rest[:tab])
		values := rest[tab+1 : tab+1+elfastaEntryValues]
		offset, n := binary.Varint(values[:binary.MaxVarintLen64])
		if n <= 0 {
			return nil, fmt.Errorf("bad offset for contig %v", contig)
		}
		size, n := binary.Varint(values[binary.MaxVarintLen64:])
		if n <= 0 {
			return nil, fmt.Errorf("bad size for contig %v", contig)
		}
		if offset < 0 || size < 0 || offset+size > int64(len(data)) {
			return nil, fmt.Errorf("sequence of contig %v out of bounds", contig)
		}
		fasta[contig] = data[offset : offset+size : offset+size]
		rest = rest[tab+1+elfastaEntryValues:]
	}
}

// MappedFasta is a memory-mapped .elfasta reference.
type MappedFasta struct {
	fasta Fasta
	data  []byte
}

// OpenElfasta memory-maps an .elfasta file.
func OpenElfasta(filename string) (*MappedFasta, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	// The mapping stays valid after the file is closed.
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("%v is not an elfasta file: empty", filename)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mapping %v: %w", filename, err)
	}
	fasta, err := parseElfastaIndex(data)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("%v is not a valid elfasta file: %w", filename, err)
	}
	return &MappedFasta{fasta: fasta, data: data}, nil
}

// Close unmaps the reference.
func (fasta *MappedFasta) Close() error {
	if fasta.data == nil {
		return nil
	}
	err := unix.Munmap(fasta.data)
	fasta.data, fasta.fasta = nil, nil
	return err
}

// Seq returns the full sequence of a contig.
func (fasta *MappedFasta) Seq(contig string) []byte {
	return fasta.fasta[contig]
}

// Bases returns the reference bases for the 1-based, inclusive
// interval [start, end], clipped to the contig.
func (fasta *MappedFasta) Bases(contig string, start, end int32) ([]byte, bool) {
	return sliceSeq(fasta.Seq(contig), start, end)
}

// ContigLength returns the length of the contig, or 0 if unknown.
func (fasta *MappedFasta) ContigLength(contig string) int32 {
	return int32(len(fasta.Seq(contig)))
}
