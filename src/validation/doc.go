// Package validation decides whether an entry or a link is admissible.
//
// Every function here is a pure predicate over the candidate and the
// chain-full validation package of the chain about to contain it. Nothing is
// cached and nothing is shared between calls, so any peer can re-run any
// validation at any time and reach the same verdict. The only lookups that
// leave the package are the one-hop fetches some link rules make through a
// Resolver.
//
// Rejections are Err values carrying an ErrType; use Is to test for one.
package validation
