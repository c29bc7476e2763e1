// Package messaging is the client side of the conversation exchange: it
// resolves the unique conversation between two users, sends the one
// greeting a first contact gets, keeps the selected conversation's
// messages current by polling, and projects the user's conversations
// into display summaries.
//
// Nothing here talks HTTP. Components depend on Backend, which the RPC
// stubs in internal/client satisfy, and receive the current user as an
// explicit models.Session.
package messaging
