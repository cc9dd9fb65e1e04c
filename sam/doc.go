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

// Package sam represents decoded alignment records as consumed by the
// evidence engine.
//
// An Alignment carries the fields of a SAM alignment line, with the
// CIGAR string already scanned into CigarOperation values, bases as
// uppercase ASCII and qualities as raw phred values. Alignments are
// produced by the read sources in package bamsource, which decode BAM
// and SAM records with github.com/biogo/hts.
package sam
