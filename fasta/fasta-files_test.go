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

package fasta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFasta = ">chr1 first contig\n" +
	"ACGTacgt\n" +
	"NNRYKM\n" +
	"\n" +
	">chr2\n" +
	"GATTACA\n"

func writeFile(t *testing.T, name, content string) string {
	filename := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
	return filename
}

func TestParseFasta(t *testing.T) {
	fasta, err := ParseFasta(writeFile(t, "ref.fasta", testFasta), nil)
	require.NoError(t, err)
	assert.Equal(t, Fasta{
		"chr1": []byte("ACGTACGTNNNNNN"),
		"chr2": []byte("GATTACA"),
	}, fasta)
	assert.Equal(t, int32(14), fasta.ContigLength("chr1"))
	assert.Equal(t, int32(0), fasta.ContigLength("chr3"))
}

func TestParseFastaWithFai(t *testing.T) {
	fai, err := ParseFai(writeFile(t, "ref.fasta.fai", "chr1\t14\t19\t8\t9\nchr2\t7\t45\t7\t8\n"))
	require.NoError(t, err)
	assert.Equal(t, FaiReference{Length: 14, Offset: 19, LineBases: 8, LineWidth: 9}, fai["chr1"])

	fasta, err := ParseFasta(writeFile(t, "ref.fasta", testFasta), fai)
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTNNNNNN", string(fasta["chr1"]))
	assert.Equal(t, 14, cap(fasta["chr1"]))
}

func TestParseFastaErrors(t *testing.T) {
	_, err := ParseFasta(writeFile(t, "ref.fasta", "ACGT\n"), nil)
	assert.Error(t, err)
	_, err = ParseFasta(writeFile(t, "ref.fasta", ""), nil)
	assert.Error(t, err)
	_, err = ParseFasta(filepath.Join(t.TempDir(), "missing.fasta"), nil)
	assert.Error(t, err)
	_, err = ParseFai(writeFile(t, "ref.fasta.fai", "chr1\t14\n"))
	assert.Error(t, err)
	_, err = ParseFai(writeFile(t, "ref.fasta.fai", "chr1\t14\tx\t8\t9\n"))
	assert.Error(t, err)
}

func TestBases(t *testing.T) {
	fasta := Fasta{"chr1": []byte("ACGTACGTAC")}
	tests := []struct {
		start, end int32
		expected   string
		ok         bool
	}{
		{1, 4, "ACGT", true},
		{3, 3, "G", true},
		{-5, 2, "AC", true},
		{8, 20, "TAC", true},
		{11, 20, "", false},
		{5, 4, "", false},
	}
	for _, test := range tests {
		bases, ok := fasta.Bases("chr1", test.start, test.end)
		assert.Equal(t, test.ok, ok)
		assert.Equal(t, test.expected, string(bases))
	}
	_, ok := fasta.Bases("chr2", 1, 2)
	assert.False(t, ok)
}

func TestElfasta(t *testing.T) {
	fasta, err := ParseFasta(writeFile(t, "ref.fasta", testFasta), nil)
	require.NoError(t, err)
	filename := filepath.Join(t.TempDir(), "ref.elfasta")
	require.NoError(t, ToElfasta(fasta, filename))

	mapped, err := OpenElfasta(filename)
	require.NoError(t, err)
	defer func() { assert.NoError(t, mapped.Close()) }()
	assert.Equal(t, "ACGTACGTNNNNNN", string(mapped.Seq("chr1")))
	assert.Equal(t, "GATTACA", string(mapped.Seq("chr2")))
	bases, ok := mapped.Bases("chr2", 2, 4)
	assert.True(t, ok)
	assert.Equal(t, "ATT", string(bases))
	assert.Equal(t, int32(7), mapped.ContigLength("chr2"))
	assert.Nil(t, mapped.Seq("chr3"))
}

func TestToUpperAndN(t *testing.T) {
	for base, expected := range map[byte]byte{'A': 'A', 'a': 'A', 't': 'T', 'N': 'N', 'n': 'N', 'R': 'N', '*': 'N'} {
		assert.Equal(t, expected, ToUpperAndN(base))
	}
}

func TestElfastaErrors(t *testing.T) {
	assert.Error(t, ToElfasta(Fasta{"bad\tname": []byte("ACGT")}, filepath.Join(t.TempDir(), "ref.elfasta")))

	_, err := OpenElfasta(writeFile(t, "ref.elfasta", ">chr1\nACGT\n"))
	assert.Error(t, err)
	_, err = OpenElfasta(writeFile(t, "empty.elfasta", ""))
	assert.Error(t, err)

	truncated := append(append([]byte{}, ElfastaMagic...), "chr1\t"...)
	_, err = OpenElfasta(writeFile(t, "truncated.elfasta", string(truncated)))
	assert.Error(t, err)
}
