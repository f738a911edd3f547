// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package store

import "errors"

var (
	// ErrFetchFailed indicates a non-success response while searching an index.
	ErrFetchFailed = errors.New("fetch from store failed")

	// ErrWriteFailed indicates a non-success response while upserting a document.
	ErrWriteFailed = errors.New("write to store failed")

	// ErrDeleteFailed indicates a non-success response while deleting a document.
	ErrDeleteFailed = errors.New("delete from store failed")

	// ErrStoreClosed indicates the storage backend is closed.
	ErrStoreClosed = errors.New("store is closed")
)
