// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SourceLoader: Extracts text from one reference source
//   - SourceCatalog: Enumerates the configured sources
//   - PostProcessorPipeline: Splits documents into chunks
//   - IndexStore: Persistent documents, chunks and embedding records
//   - VectorIndex: In-memory similarity search over embeddings
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: Generates criterion assessments and summaries
//   - PromptStore: Prompt templates
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Translator: Localizes feedback. Without it, feedback stays in the source locale.
//   - PhotoAnalyser: Computes image metrics. Without it, retrieval uses criteria only.
//   - ImageEnhancer: External enhancement command. Without it, only toggles are reported.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, loader, or postprocessor package
package driven
