// Package errors provides structured, actionable error messages for
// plowfinder.
//
// Every fatal condition of the export and publish pipelines has a code
// (e.g. "E101") that maps to a short message, a longer explanation and a
// category. Callers decorate the error with a file location, a hint and the
// underlying cause:
//
//	err := errors.New("E101").
//	    WithLocation("data/providers.json", 12, 5).
//	    WithSuggestion("Check for a trailing comma").
//	    Wrap(syntaxErr)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E101: Provider data is malformed
//	//
//	//   data/providers.json:12:5
//	//
//	//     10 │   },
//	//     11 │   {
//	//   → 12 │     "id": 4,,
//	//        │     ^
//	//     13 │     "name": "Hastings Plow"
//	//
//	//   Hint: Check for a trailing comma
//
// Route classification never produces an error: an unresolvable path is a
// normal NotFound result.
package errors
