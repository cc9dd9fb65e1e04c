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

package bamsource

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	htssam "github.com/biogo/hts/sam"

	"github.com/exascience/elsage/sam"
)

// SamSource holds the alignments of a coordinate-sorted SAM text
// file in memory. It is read-only after LoadSam returns, so one
// SamSource can serve all workers.
type SamSource struct {
	contigs map[string]*samContig
}

type samContig struct {
	alns    []*sam.Alignment
	maxSpan int32
}

// LoadSam reads a coordinate-sorted SAM text file. Unmapped reads
// are dropped.
func LoadSam(filename string) (*SamSource, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	reader, err := htssam.NewReader(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%w, while reading SAM header of %v", err, filename)
	}
	source := &SamSource{contigs: make(map[string]*samContig)}
	var last *samContig
	it := htssam.NewIterator(reader)
	for it.Next() {
		rec := it.Record()
		if rec.Ref == nil || rec.Pos < 0 {
			continue
		}
		aln := sam.NewAlignment()
		Convert(rec, aln)
		contig := source.contigs[aln.RNAME]
		switch {
		case contig == nil:
			contig = &samContig{}
			source.contigs[aln.RNAME] = contig
		case contig != last:
			return nil, fmt.Errorf("%v is not sorted by coordinate: contig %v is split", filename, aln.RNAME)
		case aln.POS < contig.alns[len(contig.alns)-1].POS:
			return nil, fmt.Errorf("%v is not sorted by coordinate: %v", filename, aln)
		}
		last = contig
		contig.alns = append(contig.alns, aln)
		if span := aln.End() - aln.POS + 1; span > contig.maxSpan {
			contig.maxSpan = span
		}
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("%w, while reading %v", err, filename)
	}
	return source, nil
}

// ForEachAlignment calls f for every alignment that overlaps the
// 1-based, inclusive region, in file order. Each call receives a
// private copy.
func (s *SamSource) ForEachAlignment(contig string, start, end int32, f func(aln *sam.Alignment)) error {
	c := s.contigs[contig]
	if c == nil {
		return nil
	}
	first := sort.Search(len(c.alns), func(i int) bool {
		return c.alns[i].POS > start-c.maxSpan
	})
	for _, aln := range c.alns[first:] {
		if aln.POS > end {
			break
		}
		if aln.End() >= start {
			f(aln.Copy())
		}
	}
	return nil
}

// Close is a no-op. The alignments stay available to other workers.
func (s *SamSource) Close() error {
	return nil
}
