// Package fixtures builds domain records for repository integration tests.
//
// Factories go through the real repositories, so a fixture is stored exactly
// the way the API stores it:
//
//	tdb := testdb.New(t)
//	defer tdb.Close()
//
//	f := fixtures.New(tdb.DB)
//	alice := f.CreateUser(t)
//	bob := f.CreateUser(t)
//	f.Mutual(t, alice, bob)
//	post := f.CreatePost(t, alice, "Renungan pagi #syukur", "syukur")
package fixtures
