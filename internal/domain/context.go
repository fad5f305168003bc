package domain

// NoMatchingProducts is the assembled context when retrieval found nothing.
// The generator compares against it to pick the "not found" fallback.
const NoMatchingProducts = "Aucun produit trouvé dans la base de données."
