// Package record assembles the output record for each matched Gmail URL.
//
// A Record is an ordered set of string fields. Its layout is fixed: the input
// position ("line" or "offset"), the reported "url", every captured URL field
// in grammar order, and after each token the values derived from it:
//
//	legacy_view_token      -> timestamp_legacy_view_token
//	legacy_compose_token   -> timestamp_legacy_compose_token, or timestamp1_..., timestamp2_...
//	new_view_token         -> dec_new_view_token, timestamp_new_view_token_thread-f:, ...
//	new_compose_token      -> dec_new_compose_token, timestamp_new_compose_token_msg-f:, ...
//
// Fields without a value are omitted. For raw sources the Builder first
// repairs token captures with package correct and splices the repaired
// tokens back into the reported URL.
package record
