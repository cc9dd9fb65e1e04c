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

// Package bed reads target regions from BED files. See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1
package bed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Region is a BED region. Start is 0-based and End is exclusive, as
// in the file.
type Region struct {
	Chrom      string
	Start, End int32
	Name       string
}

// Bed maps contig names onto their regions, sorted by start.
type Bed struct {
	Regions map[string][]*Region
}

// NewBed allocates an empty Bed.
func NewBed() *Bed {
	return &Bed{Regions: make(map[string][]*Region)}
}

// AddRegion adds a region to the bed.
func (bed *Bed) AddRegion(region *Region) {
	bed.Regions[region.Chrom] = append(bed.Regions[region.Chrom], region)
}

func (bed *Bed) sortRegions() {
	for _, regions := range bed.Regions {
		sort.SliceStable(regions, func(i, j int) bool {
			return regions[i].Start < regions[j].Start
		})
	}
}

func parseRegion(line string) (*Region, error) {
	data := strings.Split(line, "\t")
	if len(data) < 3 {
		return nil, fmt.Errorf("missing fields in BED line %v", line)
	}
	start, err := strconv.ParseInt(data[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w, invalid start in BED line %v", err, line)
	}
	end, err := strconv.ParseInt(data[2], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w, invalid end in BED line %v", err, line)
	}
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid interval in BED line %v", line)
	}
	region := &Region{Chrom: data[0], Start: int32(start), End: int32(end)}
	if len(data) > 3 {
		region.Name = data[3]
	}
	return region, nil
}

// Read parses BED content, skipping comment, track and browser lines.
func Read(reader io.Reader) (*Bed, error) {
	bed := NewBed()
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") ||
			strings.HasPrefix(line, "browser") {
			continue
		}
		region, err := parseRegion(line)
		if err != nil {
			return nil, err
		}
		bed.AddRegion(region)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	bed.sortRegions()
	return bed, nil
}

// ParseBed parses a BED file.
func ParseBed(filename string) (*Bed, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	bed, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("%w, while reading BED file %v", err, filename)
	}
	return bed, nil
}
