package economy

import "fmt"

// Commodity описывает торговый товар. Одна единица занимает одну тонну трюма.
type Commodity struct {
	Name  string `yaml:"name"`
	Price int    `yaml:"price"` // Базовая цена за тонну
}

// Validate проверяет описание товара
func (c *Commodity) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("товар без имени")
	}
	if c.Price < 0 {
		return fmt.Errorf("товар %s: отрицательная цена", c.Name)
	}
	return nil
}
