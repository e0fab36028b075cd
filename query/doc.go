// Package query turns raw user queries into the forms the engine works with:
// particle-stripped terms for scoring, a canonical Key for answer caching,
// and hard year/month filters.
//
// Two phrasings that reduce to the same set of terms share a Key:
//
//	query.KeyOf("2020년 구매 문서를 찾아줘") == query.KeyOf("구매 문서 2020년")
package query
