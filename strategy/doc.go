// Package strategy provides the built-in load balancing strategies.
//
// A strategy maps registered content onto a fixed number of data groups. Every
// rank runs the same strategy over the same registry and must arrive at the
// same answer, so all strategies here are deterministic functions of the
// content order, the projected costs and the group count.
//
//   - LPT: greedy longest-processing-time bin packing. Minimizes the peak
//     group cost; the default.
//   - RoundRobin: content i goes to group i mod n, ignoring cost.
//   - ConsistentHash: content name hashed onto a ring of group indices, with an
//     optional load cap that diverts items away from an overloaded owner.
//
// Custom strategies can be implemented by satisfying the types.AssignmentStrategy interface.
package strategy
