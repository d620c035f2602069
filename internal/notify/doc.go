// Package notify turns keyword hits into operator alerts.
//
// The engine evaluates routing rules against the matched keyword, picks the
// destination channels, applies a per-(keyword, source) cooldown, and fans the
// alert out to every selected channel concurrently. Channels are small
// adapters over concrete transports (console, append-only file, chat-bot
// webhooks, Telegram, SMTP, desktop toast); the engine never knows transport
// details beyond name and Send.
//
// # Delivery model
//
// Dispatch is the async path: queue + worker pool + token-bucket pacing, with
// drop-on-full so a slow channel can never stall message ingestion. Notify is
// the synchronous path the workers (and tests) use. Every send is bounded by
// a per-channel timeout; one slow channel delays only itself.
package notify
