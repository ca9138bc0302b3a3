/*
Copyright 2025 The windco Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package output models simulator time series and the file formats they
// travel in. A TimeSeries is a named channel table with units; readers
// for the tabular text format and the packed binary format register
// themselves in a format registry keyed by extension, so the executor
// can collect results without knowing which simulator produced them.
// Aggregations over single channels live here too; everything involving
// cycles, damage or energy sits in the postpro package.
package output
