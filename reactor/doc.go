// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the single-goroutine event-loop driver that hosts
// machines, delivers their lifecycle calls and interprets their responses.
// Registrations are identified by opaque tokens; wakeups travel through
// cloneable Notifier values backed by an eventfd (Linux) or a channel.
package reactor
