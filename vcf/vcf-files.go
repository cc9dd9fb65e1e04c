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

// Package vcf reads candidate variants from VCF files.
package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/exascience/elsage/utils"
	"github.com/exascience/elsage/variant"
)

const fileFormatVersionLinePrefix = "##fileformat=VCFv4."

// DefaultHeaderColumns for VCF files.
var DefaultHeaderColumns = []string{"CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// TIER is the INFO key that holds the tier of a candidate.
var TIER = utils.Intern("TIER")

// Header is the header section of a VCF file. Meta-information lines
// are kept verbatim, without the leading "##".
type Header struct {
	FileFormat string
	Meta       []string
	Columns    []string
}

// Record is a VCF data line, restricted to the fixed columns.
type Record struct {
	Chrom  string
	Pos    int32
	ID     string
	Ref    string
	Alt    []string
	Filter []string
	Info   utils.SmallMap
}

func getLine(reader *bufio.Reader) (line string, err error) {
	line, err = reader.ReadString('\n')
	switch {
	case err == nil:
		line = strings.TrimSuffix(line[:len(line)-1], "\r")
	case err == io.EOF && line != "":
		err = nil
	}
	return
}

// ParseHeader parses the header of a VCF file, up to and including
// the column line.
func ParseHeader(reader *bufio.Reader) (hdr *Header, lines int, err error) {
	line, err := getLine(reader)
	if err != nil {
		return nil, 0, err
	}
	lines++
	if !strings.HasPrefix(line, fileFormatVersionLinePrefix) {
		return nil, 0, errors.New("invalid first line in a VCF file")
	}
	hdr = &Header{FileFormat: line[2:]}
	for {
		line, err = getLine(reader)
		if err != nil {
			if err == io.EOF {
				err = errors.New("unexpected end of VCF header")
			}
			return nil, 0, err
		}
		lines++
		switch {
		case strings.HasPrefix(line, "##"):
			hdr.Meta = append(hdr.Meta, line[2:])
		case strings.HasPrefix(line, "#"):
			hdr.Columns = strings.Split(line[1:], "\t")
			if len(hdr.Columns) < len(DefaultHeaderColumns) {
				return nil, 0, fmt.Errorf("missing columns in VCF header line %v", line)
			}
			return hdr, lines, nil
		default:
			return nil, 0, errors.New("unexpected end of VCF header")
		}
	}
}

func splitList(s string, separator string) []string {
	if s == "." || s == "" {
		return nil
	}
	return strings.Split(s, separator)
}

func parseInfo(s string) (info utils.SmallMap) {
	for _, entry := range splitList(s, ";") {
		if key, value, found := strings.Cut(entry, "="); found {
			info = append(info, utils.SmallMapEntry{Key: utils.Intern(key), Value: value})
		} else {
			info = append(info, utils.SmallMapEntry{Key: utils.Intern(key), Value: true})
		}
	}
	return
}

// fixedColumns is the number of mandatory columns of a VCF data line.
const fixedColumns = 8

var errMissingColumns = errors.New("missing columns in VCF data line")

// ParseRecord parses a VCF data line. Sample columns are ignored.
func ParseRecord(line string) (*Record, error) {
	fields := strings.SplitN(line, "\t", fixedColumns+1)
	if len(fields) < fixedColumns {
		return nil, errMissingColumns
	}
	pos, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w, invalid position in VCF data line", err)
	}
	return &Record{
		Chrom:  fields[0],
		Pos:    int32(pos),
		ID:     fields[2],
		Ref:    strings.ToUpper(fields[3]),
		Alt:    splitList(strings.ToUpper(fields[4]), ","),
		Filter: splitList(fields[6], ";"),
		Info:   parseInfo(fields[7]),
	}, nil
}

// Variants converts a record into one candidate per alternate allele.
// Symbolic and missing alleles are skipped.
func (record *Record) Variants() ([]*variant.Variant, error) {
	tier := variant.LowConfidence
	if value, ok := record.Info.Get(TIER); ok {
		name, _ := value.(string)
		t, err := variant.ParseTier(name)
		if err != nil {
			return nil, err
		}
		tier = t
	}
	var result []*variant.Variant
	for _, alt := range record.Alt {
		if alt == "*" || strings.ContainsAny(alt, "<>[]") {
			continue
		}
		v := &variant.Variant{Chrom: record.Chrom, Pos: record.Pos, Ref: record.Ref, Alt: alt, Tier: tier}
		if err := v.Validate(); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// ReadCandidates reads all candidate variants from VCF content.
func ReadCandidates(reader io.Reader) (*Header, []*variant.Variant, error) {
	bufferedReader := bufio.NewReader(reader)
	hdr, lines, err := ParseHeader(bufferedReader)
	if err != nil {
		return nil, nil, err
	}
	var candidates []*variant.Variant
	for {
		line, err := getLine(bufferedReader)
		if err == io.EOF {
			return hdr, candidates, nil
		} else if err != nil {
			return nil, nil, err
		}
		lines++
		if line == "" {
			continue
		}
		record, err := ParseRecord(line)
		if err != nil {
			return nil, nil, fmt.Errorf("%w, in VCF line %v", err, lines)
		}
		variants, err := record.Variants()
		if err != nil {
			return nil, nil, fmt.Errorf("%w, in VCF line %v", err, lines)
		}
		candidates = append(candidates, variants...)
	}
}

// ReadCandidatesFile reads all candidate variants from a VCF file.
func ReadCandidatesFile(filename string) ([]*variant.Variant, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	_, candidates, err := ReadCandidates(file)
	if err != nil {
		return nil, fmt.Errorf("%w, while reading VCF file %v", err, filename)
	}
	return candidates, nil
}
