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


package extract

import "errors"

var (
	// ErrUnsupportedType is returned for files that are neither PDF, plain
	// text, nor an image format the OCR engine accepts.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrEngineUnavailable is returned by the Unavailable OCR engine.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")

	// ErrNoTextRecognized is returned when OCR ran but produced no text.
	ErrNoTextRecognized = errors.New("no text recognized")

	// ErrRasterizeFailed is returned when PDF pages could not be converted
	// to images for OCR.
	ErrRasterizeFailed = errors.New("failed to rasterize document pages")

	// ErrMalformedPDF is returned when the PDF parser rejects or panics on a file.
	ErrMalformedPDF = errors.New("malformed pdf")
)
