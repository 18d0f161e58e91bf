/*
Package markov provides a small, in-memory toolkit for learning a second-order
Markov chain from plain text and generating pseudo-random, locally-grammatical
prose from it.

Text is split by a Scanner into typed tokens (words and three kinds of
punctuation). A Model records, for every pair of consecutive tokens, which
tokens followed that pair and how often. A Sampler walks the model at random,
and Model.Generate renders the walk into capitalized, correctly spaced text of
a requested length.

Models can be saved to and restored from a JSON encoding, merged additively,
and persisted in a SQLite database through a Store.
*/
package markov
