/*
Package tokendrop implements time bounded, optionally gated token
distributions.

A drop escrows a fixed amount of one token on its own account and lets
eligible addresses claim an equal share each, exactly once, until the drop
expires or runs out of claims. Storage rent for the drop record and for
every possible claim receipt is collected up front and paid back when the
records are removed, so a fully cleaned up drop costs its creator only the
fees. Teardown is reachable three ways: the creator cancels, anyone cleans
up a terminal drop, or a new drop for the same token supersedes a terminal
leftover.

Eligibility is checked by an eight variant gating policy evaluated against
live reads of an external asset registry and name registry. The policy is
fixed when the drop is created and unknown policy tags are rejected at that
point, never when a claim arrives.
*/
package tokendrop
