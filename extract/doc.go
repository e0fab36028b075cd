// Package extract obtains the text of corpus documents.
//
// PDFs are read through their text layer first. A text-layer heuristic
// samples the first pages; when too little text is found, or the PDF cannot
// be parsed, the document is handed to an OCREngine. Images always go to
// OCR. Recognized text passes through Normalize to repair common OCR
// artifacts.
//
// When tesseract or pdftoppm is missing, DetectOCR returns the Unavailable
// engine, and every OCR request fails with reason engine_unavailable.
package extract
