// Package chain models the append-only chains that agents write to.
//
// Every commit appends a Header to the author's chain. The header points to
// the committed entry by address, to the previous header by hash, and carries
// the provenances (signatures over the entry address) that accompanied the
// write. Index 0 of every chain is the author's AgentID entry.
//
// Records and LinkRecords are the units that peers replicate. A Package is the
// chain-full validation package: the ordered entries of a chain, which is all
// the context a validator ever gets.
package chain
