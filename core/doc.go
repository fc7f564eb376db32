// Package core provides the foundational domain types shared by the invoker
// and fan-out layers:
//
//   - ModelID (opaque backend model name)
//   - Message (one role/content turn of the shared conversation)
//   - Result (success with content + optional reasoning, or a detail-free failure)
//   - BatchResult / StreamItem (fan-in shapes for batch and streaming consumption)
//
// The package intentionally keeps transport and orchestration concerns out of
// scope so providers and coordinators can evolve independently.
package core
