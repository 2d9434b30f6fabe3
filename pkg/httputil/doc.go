// Package httputil carries the handler plumbing shared by every HTTP
// surface: JSON response writers, request parsing helpers, and baseline
// middleware.
//
// Responses always carry a JSON body. Error paths go through
// WriteErrorMessage so a client never has to interpret an empty 4xx or 5xx:
//
//	httputil.WriteJSON(w, http.StatusOK, payload)
//	httputil.WriteForbidden(w, "not a member of this tenant")
//
// Parsing helpers come in paired forms. The OrError variants write the 400
// themselves so handlers can bail with a bare return:
//
//	userID, ok := httputil.ParsePathUUIDOrError(w, r, "user_id")
//	if !ok {
//		return
//	}
//
// The middleware here is transport-level only (request IDs, panic recovery,
// body limits). Authentication and tenant resolution live in pkg/middleware.
package httputil
