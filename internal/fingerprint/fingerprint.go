// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package fingerprint computes the digests stored alongside error records.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
)

const (
	nullField     = "null"
	undefinedName = "undefined"
)

// Fingerprint returns the grouping hash of an error: the lowercase hex
// SHA-256 digest of "<file>:<line>:<col>:<errorName>".
//
// Absent identity fields are written as "null" and an absent error name as
// "undefined", so that errors missing the same fields still group together.
// Callers pass an explicit null name as the string "null".
func Fingerprint(file *string, line, col *int, errorName *string) string {
	hash := sha256.New()
	writeString(hash, file, nullField)
	io.WriteString(hash, ":")
	writeInt(hash, line)
	io.WriteString(hash, ":")
	writeInt(hash, col)
	io.WriteString(hash, ":")
	writeString(hash, errorName, undefinedName)
	return hex.EncodeToString(hash.Sum(nil))
}

// AddressHash returns the lowercase hex SHA-256 digest of a client address.
// An absent address is hashed as the empty string.
func AddressHash(addr *string) string {
	var s string
	if addr != nil {
		s = *addr
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func writeString(w io.Writer, s *string, absent string) {
	if s == nil {
		io.WriteString(w, absent)
		return
	}
	io.WriteString(w, *s)
}

func writeInt(w io.Writer, v *int) {
	if v == nil {
		io.WriteString(w, nullField)
		return
	}
	io.WriteString(w, strconv.Itoa(*v))
}
