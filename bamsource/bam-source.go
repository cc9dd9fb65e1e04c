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

// Package bamsource delivers alignments from indexed BAM files.
package bamsource

import (
	"fmt"
	"os"

	"github.com/biogo/hts/bam"
	htssam "github.com/biogo/hts/sam"

	"github.com/exascience/elsage/sam"
)

var nmTag = htssam.NewTag("NM")

// Source reads the alignments of a region from an indexed BAM file.
// A Source is not safe for concurrent use; open one per worker.
type Source struct {
	file   *os.File
	reader *bam.Reader
	index  *bam.Index
	refs   map[string]*htssam.Reference
	aln    sam.Alignment
}

// Open opens a BAM file and its index. If indexFile is empty,
// filename+".bai" is used.
func Open(filename, indexFile string) (*Source, error) {
	if indexFile == "" {
		indexFile = filename + ".bai"
	}
	indexReader, err := os.Open(indexFile)
	if err != nil {
		return nil, err
	}
	defer indexReader.Close()
	index, err := bam.ReadIndex(indexReader)
	if err != nil {
		return nil, fmt.Errorf("%w, while reading BAM index %v", err, indexFile)
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	reader, err := bam.NewReader(file, 1)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%w, while opening BAM file %v", err, filename)
	}
	refs := make(map[string]*htssam.Reference)
	for _, ref := range reader.Header().Refs() {
		refs[ref.Name()] = ref
	}
	return &Source{file: file, reader: reader, index: index, refs: refs}, nil
}

// Close closes the BAM file.
func (s *Source) Close() error {
	err := s.reader.Close()
	if ferr := s.file.Close(); err == nil {
		err = ferr
	}
	return err
}

// ForEachAlignment calls f for every alignment that overlaps the
// 1-based, inclusive region, in file order. The alignment passed to f
// is reused between calls.
func (s *Source) ForEachAlignment(contig string, start, end int32, f func(aln *sam.Alignment)) error {
	ref, ok := s.refs[contig]
	if !ok {
		return nil
	}
	chunks, err := s.index.Chunks(ref, int(start-1), int(end))
	if err != nil {
		return err
	}
	it, err := bam.NewIterator(s.reader, chunks)
	if err != nil {
		return err
	}
	for it.Next() {
		rec := it.Record()
		if rec.Ref != ref || rec.Pos >= int(end) || rec.End() < int(start) {
			continue
		}
		Convert(rec, &s.aln)
		f(&s.aln)
	}
	return it.Close()
}

// Convert fills aln from a decoded BAM or SAM record, reusing the slices of
// aln where possible.
func Convert(rec *htssam.Record, aln *sam.Alignment) {
	aln.QNAME = rec.Name
	aln.FLAG = uint16(rec.Flags)
	aln.RNAME = rec.Ref.Name()
	aln.POS = int32(rec.Pos + 1)
	aln.MAPQ = rec.MapQ
	aln.CIGAR = sam.AppendHtsCigar(aln.CIGAR[:0], rec.Cigar)
	switch {
	case rec.MateRef == nil:
		aln.RNEXT = "*"
	case rec.MateRef == rec.Ref:
		aln.RNEXT = "="
	default:
		aln.RNEXT = rec.MateRef.Name()
	}
	aln.PNEXT = int32(rec.MatePos + 1)
	aln.TLEN = int32(rec.TempLen)
	aln.SEQ = append(aln.SEQ[:0], rec.Seq.Expand()...)
	aln.QUAL = aln.QUAL[:0]
	for _, q := range rec.Qual {
		if q == 0xff {
			q = 0
		}
		aln.QUAL = append(aln.QUAL, q)
	}
	for len(aln.QUAL) < len(aln.SEQ) {
		aln.QUAL = append(aln.QUAL, 0)
	}
	aln.TAGS = aln.TAGS[:0]
	aln.Temps = aln.Temps[:0]
	if aux := rec.AuxFields.Get(nmTag); aux != nil {
		if nm, ok := nmValue(aux.Value()); ok {
			aln.TAGS.Set(sam.NM, nm)
		}
	}
}

func nmValue(value interface{}) (int32, bool) {
	switch v := value.(type) {
	case int8:
		return int32(v), true
	case uint8:
		return int32(v), true
	case int16:
		return int32(v), true
	case uint16:
		return int32(v), true
	case int32:
		return v, true
	case uint32:
		return int32(v), true
	}
	return 0, false
}
