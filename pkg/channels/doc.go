// Package channels provides the transport adapters behind the
// notification dispatch router: email (Postmark), in-app feed (Redis),
// Slack and Teams incoming webhooks, and the external comms gateway for
// SMS, WhatsApp and push.
//
// Every adapter implements notify.Adapter and reports failures through
// the notify.Transient / notify.Permanent classification, which is all
// the retry policy needs to know about a transport. Recipient addresses
// are looked up through the AddressBook interface; the membership
// directory client in pkg/directory implements it.
package channels
